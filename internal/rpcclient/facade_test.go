package rpcclient

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/storagesync/storagesync/internal/errs"
)

func TestRunBoundedJoinsAllWork(t *testing.T) {
	f := &Facade{label: "test", batch: 3}

	var done int32
	err := f.RunBounded(context.Background(), 20, func(ctx context.Context, i int) error {
		atomic.AddInt32(&done, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("RunBounded returned error: %v", err)
	}
	if done != 20 {
		t.Fatalf("expected 20 units of work to run, got %d", done)
	}
}

func TestRunBoundedPropagatesFirstError(t *testing.T) {
	f := &Facade{label: "test", batch: 2}

	sentinel := errors.New("boom")
	err := f.RunBounded(context.Background(), 5, func(ctx context.Context, i int) error {
		if i == 3 {
			return sentinel
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errs.Is(err, errs.Fatal) {
		t.Fatalf("expected a Fatal kind error, got %v", err)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel error, got %v", err)
	}
}

func TestStorageDiffEntryDecode(t *testing.T) {
	cases := []struct {
		name string
		json string
		kind Kind
	}{
		{"unchanged", `"="`, KindUnchanged},
		{"modified", `{"*":{"from":"0x01","to":"0x02"}}`, KindModified},
		{"created", `{"+":"0x2a"}`, KindCreated},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var e StorageDiffEntry
			if err := e.UnmarshalJSON([]byte(c.json)); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			kind, _, err := e.Decode()
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if kind != c.kind {
				t.Fatalf("expected kind %v, got %v", c.kind, kind)
			}
		})
	}
}

func TestBlockTagString(t *testing.T) {
	if Latest().String() != "latest" {
		t.Fatalf("expected latest")
	}
	if AtBlock(42).String() != "42" {
		t.Fatalf("expected 42, got %s", AtBlock(42).String())
	}
}
