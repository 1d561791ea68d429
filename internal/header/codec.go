// Package header implements Component G: RLP encoding of a block header
// with PoW/PoA variant handling, for on-chain re-hashing by the relay
// contract (spec.md §4.G).
package header

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Header is the engine's own minimal header representation: the 13
// mandatory fields plus the two PoW-only fields (spec.md §4.G). It is
// deliberately narrower than core/types.Header (which also carries
// BaseFee, WithdrawalsHash, and other post-merge/post-EIP-1559 fields not
// named by the spec): keeping the engine's wire format pinned to exactly
// what spec.md §4.G enumerates is what makes its hash byte-compatible
// with whatever the relay's re-hashing expects.
type Header struct {
	ParentHash       common.Hash
	UnclesHash       common.Hash
	Miner            common.Address
	StateRoot        common.Hash
	TransactionsRoot common.Hash
	ReceiptsRoot     common.Hash
	LogsBloom        types.Bloom
	Difficulty       *big.Int
	Number           *big.Int
	GasLimit         uint64
	GasUsed          uint64
	Timestamp        uint64
	ExtraData        []byte

	// MixHash and Nonce are both nil for the PoA variant and both set for
	// the PoW variant (spec.md §4.G: "When mixHash and nonce are both
	// present... append both as fields 14 and 15; otherwise omit").
	MixHash *common.Hash
	Nonce   *types.BlockNonce
}

// FromTypesHeader builds an engine Header from a go-ethereum
// *types.Header, the shape internal/rpcclient.HeaderByNumber returns. A
// header is treated as PoW when its MixDigest/Nonce pair is non-empty.
func FromTypesHeader(h *types.Header) *Header {
	out := &Header{
		ParentHash:       h.ParentHash,
		UnclesHash:       h.UncleHash,
		Miner:            h.Coinbase,
		StateRoot:        h.Root,
		TransactionsRoot: h.TxHash,
		ReceiptsRoot:     h.ReceiptHash,
		LogsBloom:        h.Bloom,
		Difficulty:       orZeroBig(h.Difficulty),
		Number:           orZeroBig(h.Number),
		GasLimit:         h.GasLimit,
		GasUsed:          h.GasUsed,
		Timestamp:        h.Time,
		ExtraData:        h.Extra,
	}
	if h.MixDigest != (common.Hash{}) || h.Nonce != (types.BlockNonce{}) {
		mix := h.MixDigest
		nonce := h.Nonce
		out.MixHash = &mix
		out.Nonce = &nonce
	}
	return out
}

func orZeroBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// fields returns the ordered RLP list elements: 13 for the PoA variant, 15
// for the PoW variant.
func (h *Header) fields() []interface{} {
	f := []interface{}{
		h.ParentHash,
		h.UnclesHash,
		h.Miner,
		h.StateRoot,
		h.TransactionsRoot,
		h.ReceiptsRoot,
		h.LogsBloom,
		orZeroBig(h.Difficulty),
		orZeroBig(h.Number),
		h.GasLimit,
		h.GasUsed,
		h.Timestamp,
		h.ExtraData,
	}
	if h.MixHash != nil && h.Nonce != nil {
		f = append(f, *h.MixHash, *h.Nonce)
	}
	return f
}

// EncodeRLP implements rlp.Encoder, producing spec.md §4.G's RLP list
// exactly (13 or 15 elements, never a fixed-width 15 with zero-fill).
func (h *Header) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, h.fields())
}

// Encode returns the RLP bytes directly, the payload submitted alongside
// proofs to relay.verifyMigrateContract (spec.md §4.F step 8, §6).
func (h *Header) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(h)
}

// Hash returns Keccak256 of the RLP encoding; spec.md §8's "Header hash
// round-trip" property requires this to equal the node-reported block
// hash for both PoW and PoA chains.
func (h *Header) Hash() (common.Hash, error) {
	enc, err := h.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}
