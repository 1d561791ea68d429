package migration

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/storagesync/storagesync/internal/config"
	"github.com/storagesync/storagesync/internal/contracts"
	"github.com/storagesync/storagesync/internal/diff"
	"github.com/storagesync/storagesync/internal/rpcclient"
)

// Facade is the slice of internal/rpcclient the migration engine needs
// from each chain: everything diff.Facade needs (for enumeration and
// proof fetching during migration) plus the pieces bind.BoundContract
// transactions need.
type Facade interface {
	diff.Facade
	EthClient() *ethclient.Client
	ChainID(ctx context.Context) (*big.Int, error)
	RPCClient() *rpc.Client
}

// Engine drives one source-contract-to-proxy migration and its ongoing
// synchronization (spec.md §4.F). It is not safe for concurrent use:
// spec.md §5 requires engine state never be touched from more than one
// task at a time.
type Engine struct {
	cfg    config.Config
	Source Facade
	Target Facade

	signer *bind.TransactOpts
	relay  *contracts.Relay
	proxy  *contracts.Proxy
	logic  common.Address

	state    State
	srcBlock *big.Int

	logger log.Logger
}

// New constructs an Engine in the Uninitialized state.
func New(cfg config.Config, source, target Facade) *Engine {
	return &Engine{
		cfg:    cfg,
		Source: source,
		Target: target,
		state:  Uninitialized,
		logger: log.New("component", "migration", "source", cfg.SourceAddress),
	}
}

func (e *Engine) State() State { return e.state }

// RelayAddress returns the address of the attached relay, or the zero
// address if none is attached yet.
func (e *Engine) RelayAddress() common.Address {
	if e.relay == nil {
		return common.Address{}
	}
	return e.relay.Address
}

// ProxyAddress returns the address of the attached proxy, or the zero
// address if none is attached yet.
func (e *Engine) ProxyAddress() common.Address {
	if e.proxy == nil {
		return common.Address{}
	}
	return e.proxy.Address
}

func waitMined(ctx context.Context, client *ethclient.Client, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, client, tx)
}

func (e *Engine) chunkSize() int {
	if e.cfg.ChunkSize > 0 {
		return e.cfg.ChunkSize
	}
	return config.DefaultChunkSize
}

func (e *Engine) batchSize() int {
	if e.cfg.BatchSize > 0 {
		return e.cfg.BatchSize
	}
	return config.DefaultBatchSize
}

func atBlock(n *big.Int) rpcclient.BlockTag {
	return rpcclient.AtBlockBig(n)
}
