package rpcclient

import "math/big"

// BlockTag is either a concrete block number or one of the sentinel tags
// latest/earliest/pending (spec.md §3: Block number / block tag).
type BlockTag struct {
	Number *big.Int // nil when Tag is set
	Tag    string   // "latest", "earliest", "pending", or "" when Number is set
}

// Latest is the sentinel tag meaning the chain head.
func Latest() BlockTag { return BlockTag{Tag: "latest"} }

// Earliest is the sentinel tag meaning the genesis block.
func Earliest() BlockTag { return BlockTag{Tag: "earliest"} }

// Pending is the sentinel tag meaning the next, not-yet-mined block.
func Pending() BlockTag { return BlockTag{Tag: "pending"} }

// AtBlock is a concrete block number tag.
func AtBlock(n uint64) BlockTag { return BlockTag{Number: new(big.Int).SetUint64(n)} }

// AtBlockBig is a concrete block number tag taking a *big.Int directly.
func AtBlockBig(n *big.Int) BlockTag { return BlockTag{Number: n} }

// IsSentinel reports whether the tag names latest/earliest/pending rather
// than a concrete number.
func (b BlockTag) IsSentinel() bool { return b.Number == nil }

// rpcParam renders the value this tag would take as a JSON-RPC "block
// parameter": a 0x-number for concrete blocks, or the bare sentinel word.
func (b BlockTag) rpcParam() interface{} {
	if b.Number != nil {
		return toBlockNumArg(b.Number)
	}
	if b.Tag == "" {
		return "latest"
	}
	return b.Tag
}

func (b BlockTag) String() string {
	if b.Number != nil {
		return b.Number.String()
	}
	if b.Tag == "" {
		return "latest"
	}
	return b.Tag
}

func toBlockNumArg(n *big.Int) string {
	if n == nil {
		return "latest"
	}
	return "0x" + n.Text(16)
}
