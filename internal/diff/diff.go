// Package diff implements Component C: the three interchangeable
// strategies that produce a changed-key set between two points in time
// for a contract (spec.md §4.C).
package diff

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/storagesync/storagesync/internal/errs"
	"github.com/storagesync/storagesync/internal/rpcclient"
)

// Entry is one changed slot (spec.md §3: Diff).
type Entry struct {
	Key         common.Hash
	SrcValue    common.Hash
	TargetValue common.Hash
}

// Diff is an ordered, key-ascending list of changed slots (spec.md §3).
type Diff []Entry

// Keys returns the ordered key set of a Diff, used by the "diff symmetry
// under reversal" property (spec.md §8).
func (d Diff) Keys() []common.Hash {
	keys := make([]common.Hash, len(d))
	for i, e := range d {
		keys[i] = e.Key
	}
	return keys
}

func sortByKey(d Diff) Diff {
	sort.Slice(d, func(i, j int) bool {
		return d[i].Key.Big().Cmp(d[j].Key.Big()) < 0
	})
	return d
}

// Strategy names the three interchangeable implementations (spec.md §9:
// "Polymorphism over diff strategy").
type Strategy string

const (
	StrategyStorage  Strategy = "storage"
	StrategyGetProof Strategy = "getProof"
	StrategySrcTx    Strategy = "srcTx"
)

// Facade is the combined slice of internal/rpcclient.Facade that some
// strategy in this package needs; *rpcclient.Facade satisfies it
// structurally. Keeping it as an interface here (spec.md §9: "Shared-owned
// RPC handle" borrowed immutably) lets tests substitute a fake per
// strategy without touching a network.
type Facade interface {
	ListStorageKeys(ctx context.Context, addr common.Address, count int, offset *common.Hash, tag rpcclient.BlockTag) (rpcclient.KeyPage, error)
	StorageAt(ctx context.Context, addr common.Address, key common.Hash, tag rpcclient.BlockTag) (common.Hash, error)
	GetProof(ctx context.Context, addr common.Address, keys []common.Hash, tag rpcclient.BlockTag) (*rpcclient.AccountResult, error)
	GetCode(ctx context.Context, addr common.Address, tag rpcclient.BlockTag) ([]byte, error)
	HeaderByNumber(ctx context.Context, tag rpcclient.BlockTag) (*types.Header, error)
	BlockByNumber(ctx context.Context, tag rpcclient.BlockTag) (*types.Block, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	TraceReplayTransaction(ctx context.Context, hash common.Hash) (*rpcclient.TraceReplayResult, error)
}

// Engine computes a Diff for a contract address pair using a chosen
// strategy. The caller selects the strategy (spec.md §4.C: "Strategy
// selection is made by the caller").
type Engine struct {
	Source        Facade
	Target        Facade
	SourceAddress common.Address
	TargetAddress common.Address
}

// Compute dispatches to the requested strategy. For the getProof and srcTx
// strategies fromBlock is the previously-synchronized source block and
// toBlock the new source block to synchronize to; the storage strategy
// reads fromBlock on the source chain and toBlock on the target chain.
// When fromBlock's number exceeds toBlock's, the result is
// the empty diff, not an error (spec.md §4.F "Tie-breaks": "when source
// block > target block, the diff is empty (not an error)").
func (e *Engine) Compute(ctx context.Context, strategy Strategy, fromBlock, toBlock rpcclient.BlockTag) (Diff, error) {
	logger := log.New("component", "diff", "strategy", strategy)
	if isNoOpRange(fromBlock, toBlock) {
		logger.Debug("no-op range, skipping", "from", fromBlock, "to", toBlock)
		return Diff{}, nil
	}
	switch strategy {
	case StrategyStorage:
		return e.storageDiff(ctx, fromBlock, toBlock)
	case StrategyGetProof:
		return e.getProofDiff(ctx, fromBlock, toBlock)
	case StrategySrcTx:
		return e.srcTxDiff(ctx, fromBlock, toBlock)
	default:
		return nil, errs.New(errs.Config, "unknown diff strategy", "strategy", strategy)
	}
}

func isNoOpRange(fromBlock, toBlock rpcclient.BlockTag) bool {
	if fromBlock.Number == nil || toBlock.Number == nil {
		return false
	}
	return fromBlock.Number.Cmp(toBlock.Number) > 0
}

// DeploymentFinderFacade is the narrow slice of internal/rpcclient needed
// to locate a contract's deployment block.
type DeploymentFinderFacade interface {
	GetCode(ctx context.Context, addr common.Address, tag rpcclient.BlockTag) ([]byte, error)
	HeaderByNumber(ctx context.Context, tag rpcclient.BlockTag) (*types.Header, error)
}

// FindDeploymentBlock performs the bounded binary search over the source
// provider described in spec.md §4.C: block b contains the contract iff
// eth_getCode(address, b) is non-empty, searching between 0 and latest.
func FindDeploymentBlock(ctx context.Context, f DeploymentFinderFacade, addr common.Address) (uint64, error) {
	head, err := f.HeaderByNumber(ctx, rpcclient.Latest())
	if err != nil {
		return 0, err
	}
	lo, hi := uint64(0), head.Number.Uint64()
	hasCode := func(b uint64) (bool, error) {
		code, err := f.GetCode(ctx, addr, rpcclient.AtBlock(b))
		if err != nil {
			return false, err
		}
		return len(code) > 0, nil
	}
	atHi, err := hasCode(hi)
	if err != nil {
		return 0, err
	}
	if !atHi {
		return 0, errs.New(errs.NotFound, "no code at latest block", "address", addr)
	}
	for lo < hi {
		mid := lo + (hi-lo)/2
		ok, err := hasCode(mid)
		if err != nil {
			return 0, err
		}
		if ok {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, nil
}
