package header

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestHashIsDeterministicPoA(t *testing.T) {
	h := &Header{
		ParentHash:       common.HexToHash("0x01"),
		UnclesHash:       common.HexToHash("0x02"),
		Miner:            common.HexToAddress("0x03"),
		StateRoot:        common.HexToHash("0x04"),
		TransactionsRoot: common.HexToHash("0x05"),
		ReceiptsRoot:     common.HexToHash("0x06"),
		Difficulty:       big.NewInt(0),
		Number:           big.NewInt(100),
		GasLimit:         8_000_000,
		GasUsed:          21_000,
		Timestamp:        1_700_000_000,
		ExtraData:        []byte("clique"),
	}

	gotHash, err := h.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	enc, err := h.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(enc) == 0 {
		t.Fatal("expected non-empty encoding")
	}

	again, err := h.Hash()
	if err != nil {
		t.Fatalf("hash again: %v", err)
	}
	if again != gotHash {
		t.Fatalf("hash is not deterministic: %s vs %s", again, gotHash)
	}
}

func TestHashPoWVariantDiffersFromPoA(t *testing.T) {
	mix := common.HexToHash("0xdeadbeef")
	nonce := types.EncodeNonce(12345)

	h := &Header{
		ParentHash:       common.HexToHash("0x01"),
		UnclesHash:       common.HexToHash("0x02"),
		Miner:            common.HexToAddress("0x03"),
		StateRoot:        common.HexToHash("0x04"),
		TransactionsRoot: common.HexToHash("0x05"),
		ReceiptsRoot:     common.HexToHash("0x06"),
		Difficulty:       big.NewInt(17_000_000_000),
		Number:           big.NewInt(100),
		GasLimit:         8_000_000,
		GasUsed:          21_000,
		Timestamp:        1_700_000_000,
		ExtraData:        []byte{},
		MixHash:          &mix,
		Nonce:            &nonce,
	}

	withNonce, err := h.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	h2 := *h
	h2.MixHash = nil
	h2.Nonce = nil
	withoutNonce, err := h2.Hash()
	if err != nil {
		t.Fatalf("hash without nonce: %v", err)
	}

	if withNonce == withoutNonce {
		t.Fatal("expected PoW and PoA variants of the same base fields to hash differently")
	}
}

func TestFromTypesHeaderDetectsPoAWhenMixAndNonceAreZero(t *testing.T) {
	th := &types.Header{
		ParentHash: common.HexToHash("0x01"),
		UncleHash:  common.HexToHash("0x02"),
		Coinbase:   common.HexToAddress("0x03"),
		Root:       common.HexToHash("0x04"),
		TxHash:     common.HexToHash("0x05"),
		ReceiptHash: common.HexToHash("0x06"),
		Difficulty: big.NewInt(0),
		Number:     big.NewInt(1),
		GasLimit:   1,
		GasUsed:    0,
		Time:       0,
		Extra:      nil,
	}

	h := FromTypesHeader(th)
	if h.MixHash != nil || h.Nonce != nil {
		t.Fatal("expected zero mixDigest/nonce to be treated as the PoA variant")
	}
}

func TestFromTypesHeaderDetectsPoWWhenNonceIsSet(t *testing.T) {
	nonce := types.EncodeNonce(7)
	th := &types.Header{
		Difficulty: big.NewInt(1),
		Number:     big.NewInt(1),
		Nonce:      nonce,
	}

	h := FromTypesHeader(th)
	if h.MixHash == nil || h.Nonce == nil {
		t.Fatal("expected a non-zero nonce to be treated as the PoW variant")
	}
}
