package diff

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/storagesync/storagesync/internal/rpcclient"
)

// fakeFacade implements the Facade interface with per-test overrides; any
// method left nil fails the test loudly if called.
type fakeFacade struct {
	t                       *testing.T
	listStorageKeys         func(ctx context.Context, addr common.Address, count int, offset *common.Hash, tag rpcclient.BlockTag) (rpcclient.KeyPage, error)
	storageAt               func(ctx context.Context, addr common.Address, key common.Hash, tag rpcclient.BlockTag) (common.Hash, error)
	getProof                func(ctx context.Context, addr common.Address, keys []common.Hash, tag rpcclient.BlockTag) (*rpcclient.AccountResult, error)
	getCode                 func(ctx context.Context, addr common.Address, tag rpcclient.BlockTag) ([]byte, error)
	headerByNumber          func(ctx context.Context, tag rpcclient.BlockTag) (*types.Header, error)
	blockByNumber           func(ctx context.Context, tag rpcclient.BlockTag) (*types.Block, error)
	transactionReceipt      func(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	traceReplayTransaction  func(ctx context.Context, hash common.Hash) (*rpcclient.TraceReplayResult, error)
}

func (f *fakeFacade) ListStorageKeys(ctx context.Context, addr common.Address, count int, offset *common.Hash, tag rpcclient.BlockTag) (rpcclient.KeyPage, error) {
	if f.listStorageKeys == nil {
		f.t.Fatal("listStorageKeys not configured")
	}
	return f.listStorageKeys(ctx, addr, count, offset, tag)
}

func (f *fakeFacade) StorageAt(ctx context.Context, addr common.Address, key common.Hash, tag rpcclient.BlockTag) (common.Hash, error) {
	if f.storageAt == nil {
		f.t.Fatal("storageAt not configured")
	}
	return f.storageAt(ctx, addr, key, tag)
}

func (f *fakeFacade) GetProof(ctx context.Context, addr common.Address, keys []common.Hash, tag rpcclient.BlockTag) (*rpcclient.AccountResult, error) {
	if f.getProof == nil {
		f.t.Fatal("getProof not configured")
	}
	return f.getProof(ctx, addr, keys, tag)
}

func (f *fakeFacade) GetCode(ctx context.Context, addr common.Address, tag rpcclient.BlockTag) ([]byte, error) {
	if f.getCode == nil {
		f.t.Fatal("getCode not configured")
	}
	return f.getCode(ctx, addr, tag)
}

func (f *fakeFacade) HeaderByNumber(ctx context.Context, tag rpcclient.BlockTag) (*types.Header, error) {
	if f.headerByNumber == nil {
		f.t.Fatal("headerByNumber not configured")
	}
	return f.headerByNumber(ctx, tag)
}

func (f *fakeFacade) BlockByNumber(ctx context.Context, tag rpcclient.BlockTag) (*types.Block, error) {
	if f.blockByNumber == nil {
		f.t.Fatal("blockByNumber not configured")
	}
	return f.blockByNumber(ctx, tag)
}

func (f *fakeFacade) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if f.transactionReceipt == nil {
		f.t.Fatal("transactionReceipt not configured")
	}
	return f.transactionReceipt(ctx, hash)
}

func (f *fakeFacade) TraceReplayTransaction(ctx context.Context, hash common.Hash) (*rpcclient.TraceReplayResult, error) {
	if f.traceReplayTransaction == nil {
		f.t.Fatal("traceReplayTransaction not configured")
	}
	return f.traceReplayTransaction(ctx, hash)
}

func TestComputeNoOpWhenSourceAheadOfTarget(t *testing.T) {
	e := &Engine{}
	d, err := e.Compute(context.Background(), StrategyStorage, rpcclient.AtBlock(10), rpcclient.AtBlock(5))
	if err != nil {
		t.Fatalf("expected no-op success, got error: %v", err)
	}
	if len(d) != 0 {
		t.Fatalf("expected empty diff, got %d entries", len(d))
	}
}

func TestStorageStrategyEmitsOnlyDisagreements(t *testing.T) {
	k1 := common.HexToHash("0x01")
	k2 := common.HexToHash("0x02")

	srcFake := &fakeFacade{
		t: t,
		listStorageKeys: func(ctx context.Context, addr common.Address, count int, offset *common.Hash, tag rpcclient.BlockTag) (rpcclient.KeyPage, error) {
			return rpcclient.KeyPage{Keys: []common.Hash{k1, k2}}, nil
		},
		storageAt: func(ctx context.Context, addr common.Address, key common.Hash, tag rpcclient.BlockTag) (common.Hash, error) {
			if key == k1 {
				return common.HexToHash("0x0a"), nil
			}
			return common.HexToHash("0x0b"), nil
		},
	}
	targetFake := &fakeFacade{
		t: t,
		listStorageKeys: func(ctx context.Context, addr common.Address, count int, offset *common.Hash, tag rpcclient.BlockTag) (rpcclient.KeyPage, error) {
			return rpcclient.KeyPage{Keys: []common.Hash{k1, k2}}, nil
		},
		storageAt: func(ctx context.Context, addr common.Address, key common.Hash, tag rpcclient.BlockTag) (common.Hash, error) {
			if key == k1 {
				return common.HexToHash("0x0a"), nil // agrees
			}
			return common.HexToHash("0xff"), nil // disagrees
		},
	}

	e := &Engine{Source: srcFake, Target: targetFake}
	d, err := e.Compute(context.Background(), StrategyStorage, rpcclient.AtBlock(1), rpcclient.AtBlock(2))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(d) != 1 || d[0].Key != k2 {
		t.Fatalf("expected exactly one disagreement on k2, got %+v", d)
	}
}

func TestFindDeploymentBlock(t *testing.T) {
	addr := common.HexToAddress("0xabc")
	deployedAt := uint64(42)

	f := &fakeFacade{
		t: t,
		headerByNumber: func(ctx context.Context, tag rpcclient.BlockTag) (*types.Header, error) {
			return &types.Header{Number: big.NewInt(100)}, nil
		},
		getCode: func(ctx context.Context, a common.Address, tag rpcclient.BlockTag) ([]byte, error) {
			if tag.Number.Uint64() >= deployedAt {
				return []byte{0x60, 0x00}, nil
			}
			return nil, nil
		},
	}

	got, err := FindDeploymentBlock(context.Background(), f, addr)
	if err != nil {
		t.Fatalf("findDeploymentBlock: %v", err)
	}
	if got != deployedAt {
		t.Fatalf("expected deployment block %d, got %d", deployedAt, got)
	}
}
