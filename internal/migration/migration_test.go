package migration

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/storagesync/storagesync/internal/config"
	"github.com/storagesync/storagesync/internal/errs"
	"github.com/storagesync/storagesync/internal/rpcclient"
)

type fakeFacade struct {
	chainID *big.Int
}

func (f fakeFacade) ListStorageKeys(ctx context.Context, addr common.Address, count int, offset *common.Hash, tag rpcclient.BlockTag) (rpcclient.KeyPage, error) {
	return rpcclient.KeyPage{}, nil
}
func (f fakeFacade) StorageAt(ctx context.Context, addr common.Address, key common.Hash, tag rpcclient.BlockTag) (common.Hash, error) {
	return common.Hash{}, nil
}
func (f fakeFacade) GetProof(ctx context.Context, addr common.Address, keys []common.Hash, tag rpcclient.BlockTag) (*rpcclient.AccountResult, error) {
	return nil, nil
}
func (f fakeFacade) GetCode(ctx context.Context, addr common.Address, tag rpcclient.BlockTag) ([]byte, error) {
	return nil, nil
}
func (f fakeFacade) HeaderByNumber(ctx context.Context, tag rpcclient.BlockTag) (*types.Header, error) {
	return nil, nil
}
func (f fakeFacade) BlockByNumber(ctx context.Context, tag rpcclient.BlockTag) (*types.Block, error) {
	return nil, nil
}
func (f fakeFacade) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return nil, nil
}
func (f fakeFacade) TraceReplayTransaction(ctx context.Context, hash common.Hash) (*rpcclient.TraceReplayResult, error) {
	return nil, nil
}
func (f fakeFacade) EthClient() *ethclient.Client { return nil }
func (f fakeFacade) ChainID(ctx context.Context) (*big.Int, error) {
	return f.chainID, nil
}
func (f fakeFacade) RPCClient() *rpc.Client { return nil }

func newTestEngine() *Engine {
	cfg := config.Defaults()
	cfg.SourceAddress = common.HexToAddress("0x01")
	return New(cfg, fakeFacade{chainID: big.NewInt(1)}, fakeFacade{chainID: big.NewInt(1)})
}

func TestNewEngineStartsUninitialized(t *testing.T) {
	e := newTestEngine()
	if e.State() != Uninitialized {
		t.Fatalf("expected Uninitialized, got %s", e.State())
	}
	if e.RelayAddress() != (common.Address{}) || e.ProxyAddress() != (common.Address{}) {
		t.Fatal("expected zero relay/proxy addresses before init")
	}
}

func TestMigrateSrcContractRequiresInitializedState(t *testing.T) {
	e := newTestEngine()
	err := e.MigrateSrcContract(context.Background(), big.NewInt(1))
	if !errs.Is(err, errs.State) {
		t.Fatalf("expected State kind error, got %v", err)
	}
}

func TestMigrateChangesToProxyRequiresMigratedState(t *testing.T) {
	e := newTestEngine()
	err := e.MigrateChangesToProxy(context.Background(), []common.Hash{common.HexToHash("0x01")}, big.NewInt(1), big.NewInt(2))
	if !errs.Is(err, errs.State) {
		t.Fatalf("expected State kind error, got %v", err)
	}
}

func TestMigrateChangesToProxyNoOpOnEmptyKeys(t *testing.T) {
	e := newTestEngine()
	e.state = Migrated
	if err := e.MigrateChangesToProxy(context.Background(), nil, big.NewInt(1), big.NewInt(2)); err != nil {
		t.Fatalf("expected no-op success for empty changedKeys, got %v", err)
	}
	if e.State() != Migrated {
		t.Fatalf("expected state to remain Migrated after no-op, got %s", e.State())
	}
}

func TestInitRequiresUninitializedState(t *testing.T) {
	e := newTestEngine()
	e.state = Initialized
	if err := e.Init(context.Background()); !errs.Is(err, errs.State) {
		t.Fatalf("expected State kind error, got %v", err)
	}
}

func TestGetLatestBlockNumberRequiresRelay(t *testing.T) {
	e := newTestEngine()
	if _, err := e.GetLatestBlockNumber(context.Background()); !errs.Is(err, errs.State) {
		t.Fatalf("expected State kind error without a relay attached, got %v", err)
	}
}

func TestChunkKeyValuesSplitsIntoFixedSizeChunks(t *testing.T) {
	keys := make([]common.Hash, 250)
	values := make([]common.Hash, 250)
	for i := range keys {
		keys[i] = common.BigToHash(big.NewInt(int64(i)))
	}

	chunks := chunkKeyValues(keys, values, 100)
	if len(chunks) != 3 {
		t.Fatalf("expected ceil(250/100)=3 chunks, got %d", len(chunks))
	}
	if len(chunks[0][0]) != 100 || len(chunks[1][0]) != 100 || len(chunks[2][0]) != 50 {
		t.Fatalf("unexpected chunk sizes: %d, %d, %d", len(chunks[0][0]), len(chunks[1][0]), len(chunks[2][0]))
	}
}

func TestChunkKeyValuesEmptyInput(t *testing.T) {
	chunks := chunkKeyValues(nil, nil, 100)
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(chunks))
	}
}
