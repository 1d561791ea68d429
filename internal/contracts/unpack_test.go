package contracts

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/storagesync/storagesync/internal/errs"
)

func TestToHash(t *testing.T) {
	var raw [32]byte
	copy(raw[:], common.HexToHash("0xabc").Bytes())
	got, err := toHash([]interface{}{raw})
	if err != nil {
		t.Fatalf("toHash: %v", err)
	}
	if got != common.HexToHash("0xabc") {
		t.Fatalf("unexpected hash: %s", got)
	}
}

func TestToHashRejectsWrongArity(t *testing.T) {
	_, err := toHash([]interface{}{})
	if !errs.Is(err, errs.RPC) {
		t.Fatalf("expected RPC kind error, got %v", err)
	}
}

func TestToAddress(t *testing.T) {
	addr := common.HexToAddress("0x01")
	got, err := toAddress([]interface{}{addr})
	if err != nil {
		t.Fatalf("toAddress: %v", err)
	}
	if got != addr {
		t.Fatalf("unexpected address: %s", got)
	}
}

func TestToBool(t *testing.T) {
	got, err := toBool([]interface{}{true})
	if err != nil {
		t.Fatalf("toBool: %v", err)
	}
	if !got {
		t.Fatal("expected true")
	}
}

func TestToBigInt(t *testing.T) {
	got, err := toBigInt([]interface{}{big.NewInt(42)})
	if err != nil {
		t.Fatalf("toBigInt: %v", err)
	}
	if got.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("unexpected value: %s", got)
	}
}

func TestToBigIntRejectsWrongType(t *testing.T) {
	_, err := toBigInt([]interface{}{"not a number"})
	if !errs.Is(err, errs.RPC) {
		t.Fatalf("expected RPC kind error, got %v", err)
	}
}
