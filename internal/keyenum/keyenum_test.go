package keyenum

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/storagesync/storagesync/internal/rpcclient"
)

type fakeFacade struct {
	pages [][]common.Hash
	calls int
}

func (f *fakeFacade) ListStorageKeys(ctx context.Context, addr common.Address, count int, offset *common.Hash, tag rpcclient.BlockTag) (rpcclient.KeyPage, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.pages) {
		return rpcclient.KeyPage{}, nil
	}
	keys := f.pages[idx]
	var cursor *common.Hash
	if len(keys) > 0 {
		c := keys[len(keys)-1]
		cursor = &c
	}
	return rpcclient.KeyPage{Keys: keys, Cursor: cursor}, nil
}

func TestEnumerateEmptyContract(t *testing.T) {
	f := &fakeFacade{pages: [][]common.Hash{{}}}
	keys, err := EnumeratePaged(context.Background(), f, common.Address{}, rpcclient.Latest(), 4)
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected zero keys, got %d", len(keys))
	}
}

func TestEnumerateTerminatesOnShortPage(t *testing.T) {
	k1 := common.HexToHash("0x01")
	k2 := common.HexToHash("0x02")
	k3 := common.HexToHash("0x03")
	f := &fakeFacade{pages: [][]common.Hash{{k1, k2}, {k3}}}

	keys, err := EnumeratePaged(context.Background(), f, common.Address{}, rpcclient.Latest(), 2)
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	want := []common.Hash{k1, k2, k3}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("key %d: expected %s, got %s", i, want[i], keys[i])
		}
	}
}

func TestEnumerateDeduplicatesOverlappingCursor(t *testing.T) {
	k1 := common.HexToHash("0x01")
	k2 := common.HexToHash("0x02")
	k3 := common.HexToHash("0x03")
	// Page 2 repeats the cursor key k2, simulating a node whose pagination
	// overlaps by one key (spec.md §9, Open Questions).
	f := &fakeFacade{pages: [][]common.Hash{{k1, k2}, {k2, k3}}}

	keys, err := EnumeratePaged(context.Background(), f, common.Address{}, rpcclient.Latest(), 2)
	if err != nil {
		t.Fatalf("enumerate: %v", err)
	}
	want := []common.Hash{k1, k2, k3}
	if len(keys) != len(want) {
		t.Fatalf("expected %d deduplicated keys, got %d: %v", len(want), len(keys), keys)
	}
}
