package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/storagesync/storagesync/internal/errs"
)

// Proxy binds the proxy contract's ABI surface (spec.md §6): it embeds
// the source/logic/relay addresses and holds the migrated storage
// mirrored from the source chain.
type Proxy struct {
	Address  common.Address
	contract *bind.BoundContract
}

func NewProxy(addr common.Address, backend bind.ContractBackend) (*Proxy, error) {
	parsed, err := parseABI(proxyABIJSON)
	if err != nil {
		return nil, errs.Wrap(errs.Config, err, "parse proxy ABI")
	}
	return &Proxy{Address: addr, contract: bind.NewBoundContract(addr, parsed, backend, backend, backend)}, nil
}

// DeployProxy deploys a fresh proxy embedding relay+logic+source
// addresses (spec.md §4.F step 6). constructorArgs are ABI-encoded
// per the proxy's actual constructor, which this package does not
// itself define — the proxy's bytecode and constructor layout are a
// deployment-time concern of the caller, not the binding.
func DeployProxy(ctx context.Context, opts *bind.TransactOpts, backend bind.ContractBackend, initcode []byte, constructorArgs ...interface{}) (*Proxy, *types.Transaction, error) {
	parsed, err := parseABI(proxyABIJSON)
	if err != nil {
		return nil, nil, errs.Wrap(errs.Config, err, "parse proxy ABI")
	}
	addr, tx, contract, err := bind.DeployContract(opts, parsed, initcode, backend, constructorArgs...)
	if err != nil {
		return nil, nil, errs.Wrap(errs.RPC, err, "deploy proxy contract")
	}
	return &Proxy{Address: addr, contract: contract}, tx, nil
}

// AddStorage submits one chunk of the bulk initial migration (spec.md
// §4.F step 7). The caller is responsible for chunking keys/values into
// groups of at most K and bounding concurrent in-flight calls to B.
func (p *Proxy) AddStorage(opts *bind.TransactOpts, keys, values []common.Hash) (*types.Transaction, error) {
	tx, err := p.contract.Transact(opts, "addStorage", keys, values)
	if err != nil {
		return nil, errs.Wrap(errs.RPC, err, "proxy.addStorage", "proxy", p.Address, "keys", len(keys))
	}
	return tx, nil
}

// UpdateStorage submits the incremental-sync optimized proof in one
// transaction (spec.md §4.F's migrateChangesToProxy, §6's on-wire proof
// format).
func (p *Proxy) UpdateStorage(opts *bind.TransactOpts, rlpProof []byte, blockNumber *big.Int) (*types.Transaction, error) {
	tx, err := p.contract.Transact(opts, "updateStorage", rlpProof, blockNumber)
	if err != nil {
		return nil, errs.Wrap(errs.RPC, err, "proxy.updateStorage", "proxy", p.Address, "block", blockNumber)
	}
	return tx, nil
}

func (p *Proxy) GetSourceAddress(ctx context.Context) (common.Address, error) {
	var out []interface{}
	if err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getSourceAddress"); err != nil {
		return common.Address{}, errs.Wrap(errs.RPC, err, "proxy.getSourceAddress")
	}
	return toAddress(out)
}

func (p *Proxy) GetLogicAddress(ctx context.Context) (common.Address, error) {
	var out []interface{}
	if err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getLogicAddress"); err != nil {
		return common.Address{}, errs.Wrap(errs.RPC, err, "proxy.getLogicAddress")
	}
	return toAddress(out)
}

func (p *Proxy) GetRelayAddress(ctx context.Context) (common.Address, error) {
	var out []interface{}
	if err := p.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getRelayAddress"); err != nil {
		return common.Address{}, errs.Wrap(errs.RPC, err, "proxy.getRelayAddress")
	}
	return toAddress(out)
}
