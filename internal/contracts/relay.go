package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/storagesync/storagesync/internal/errs"
)

// Relay binds the relay contract's ABI surface (spec.md §6): it holds
// attested source state roots keyed by block number and a per-proxy
// migration flag.
type Relay struct {
	Address  common.Address
	contract *bind.BoundContract
}

// NewRelay binds an already-deployed relay contract.
func NewRelay(addr common.Address, backend bind.ContractBackend) (*Relay, error) {
	parsed, err := parseABI(relayABIJSON)
	if err != nil {
		return nil, errs.Wrap(errs.Config, err, "parse relay ABI")
	}
	return &Relay{Address: addr, contract: bind.NewBoundContract(addr, parsed, backend, backend, backend)}, nil
}

// DeployRelay deploys a fresh relay via its initcode (spec.md §4.F step 2:
// "If no relay address, deploy a fresh relay"). initcode is expected to
// come from a caller holding the relay's compiled bytecode; the relay
// contract, unlike the logic contract, is not produced by the Bytecode
// Cloner, since it has no source-chain counterpart to clone.
func DeployRelay(ctx context.Context, opts *bind.TransactOpts, backend bind.ContractBackend, initcode []byte) (*Relay, *types.Transaction, error) {
	parsed, err := parseABI(relayABIJSON)
	if err != nil {
		return nil, nil, errs.Wrap(errs.Config, err, "parse relay ABI")
	}
	addr, tx, contract, err := bind.DeployContract(opts, parsed, initcode, backend)
	if err != nil {
		return nil, nil, errs.Wrap(errs.RPC, err, "deploy relay contract")
	}
	return &Relay{Address: addr, contract: contract}, tx, nil
}

func (r *Relay) AddBlock(opts *bind.TransactOpts, stateRoot common.Hash, blockNumber *big.Int) (*types.Transaction, error) {
	tx, err := r.contract.Transact(opts, "addBlock", stateRoot, blockNumber)
	if err != nil {
		return nil, errs.Wrap(errs.RPC, err, "relay.addBlock", "block", blockNumber)
	}
	return tx, nil
}

func (r *Relay) GetStateRoot(ctx context.Context, blockNumber *big.Int) (common.Hash, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getStateRoot", blockNumber); err != nil {
		return common.Hash{}, errs.Wrap(errs.RPC, err, "relay.getStateRoot", "block", blockNumber)
	}
	return toHash(out)
}

func (r *Relay) GetSource(ctx context.Context) (common.Address, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getSource"); err != nil {
		return common.Address{}, errs.Wrap(errs.RPC, err, "relay.getSource")
	}
	return toAddress(out)
}

func (r *Relay) GetMigrationState(ctx context.Context, proxy common.Address) (bool, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getMigrationState", proxy); err != nil {
		return false, errs.Wrap(errs.RPC, err, "relay.getMigrationState", "proxy", proxy)
	}
	return toBool(out)
}

func (r *Relay) GetCurrentBlockNumber(ctx context.Context, proxy common.Address) (*big.Int, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCurrentBlockNumber", proxy); err != nil {
		return nil, errs.Wrap(errs.RPC, err, "relay.getCurrentBlockNumber", "proxy", proxy)
	}
	return toBigInt(out)
}

func (r *Relay) GetLatestBlockNumber(ctx context.Context) (*big.Int, error) {
	var out []interface{}
	if err := r.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getLatestBlockNumber"); err != nil {
		return nil, errs.Wrap(errs.RPC, err, "relay.getLatestBlockNumber")
	}
	return toBigInt(out)
}

// VerifyMigrateContract submits the post-migration verification bundle
// (spec.md §4.F step 8). A successful transaction does not by itself
// guarantee the migration flag flipped — the caller must read it back
// (spec.md §4.F step 9).
func (r *Relay) VerifyMigrateContract(opts *bind.TransactOpts, srcAccountProof, proxyAccountProof, encodedHeader []byte, proxy common.Address, targetBlockNum, srcBlockNum *big.Int) (*types.Transaction, error) {
	tx, err := r.contract.Transact(opts, "verifyMigrateContract", srcAccountProof, proxyAccountProof, encodedHeader, proxy, targetBlockNum, srcBlockNum)
	if err != nil {
		return nil, errs.Wrap(errs.RPC, err, "relay.verifyMigrateContract", "proxy", proxy)
	}
	return tx, nil
}
