package checkpoint

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	proxy := common.HexToAddress("0x01")
	ctx := context.Background()

	got, err := store.Load(ctx, proxy)
	if err != nil {
		t.Fatalf("load before save: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil checkpoint before any save, got %s", got)
	}

	if err := store.Save(ctx, proxy, big.NewInt(100)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = store.Load(ctx, proxy)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected checkpoint 100, got %v", got)
	}
}

func TestSaveOverwritesPreviousCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	proxy := common.HexToAddress("0x02")
	ctx := context.Background()

	if err := store.Save(ctx, proxy, big.NewInt(10)); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	if err := store.Save(ctx, proxy, big.NewInt(20)); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	got, err := store.Load(ctx, proxy)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("expected latest checkpoint 20, got %s", got)
	}
}
