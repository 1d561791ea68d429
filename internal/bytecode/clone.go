// Package bytecode implements Component E: fetching a source contract's
// runtime bytecode and wrapping it in a minimal initcode stub so the
// target chain's deployment transaction redeploys it verbatim
// (spec.md §4.E).
package bytecode

import (
	"context"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"github.com/storagesync/storagesync/internal/errs"
	"github.com/storagesync/storagesync/internal/rpcclient"
)

// EVM opcodes used by the initcode stub (spec.md §4.E).
const (
	opPUSH1   = 0x60
	opPUSH2   = 0x61
	opCODECOPY = 0x39
	opRETURN   = 0xf3
)

// Facade is the narrow slice of internal/rpcclient the cloner needs.
type Facade interface {
	GetCode(ctx context.Context, addr common.Address, tag rpcclient.BlockTag) ([]byte, error)
}

// Clone fetches addr's runtime bytecode at tag and returns the initcode
// that redeploys it byte-for-byte. Source constructors are never replayed
// (spec.md §4.E: "side-effect-free constructors... are intentionally not
// replayed — constructor-set slots are mirrored via the storage migration
// instead"); the returned initcode does nothing but CODECOPY+RETURN.
func Clone(ctx context.Context, f Facade, addr common.Address, tag rpcclient.BlockTag) ([]byte, error) {
	runtime, err := f.GetCode(ctx, addr, tag)
	if err != nil {
		return nil, err
	}
	if len(runtime) == 0 {
		return nil, errs.New(errs.NotFound, "source contract has no code at the given block", "address", addr, "block", tag.String())
	}
	return Wrap(runtime), nil
}

// Wrap builds the initcode stub around runtime bytes:
//
//	PUSH2 <len> PUSH1 <offset> PUSH1 0 CODECOPY PUSH2 <len> PUSH1 0 RETURN
//	<runtime bytes>
//
// <len> is the runtime length and <offset> is the length of the stub
// itself (the runtime bytes immediately follow the stub in the deployed
// initcode, so CODECOPY's source offset is the stub's own size).
func Wrap(runtime []byte) []byte {
	length := uint16Bytes(len(runtime))
	stub := []byte{
		opPUSH2, length[0], length[1],
		opPUSH1, 0, // offset placeholder, patched below
		opPUSH1, 0x00,
		opCODECOPY,
		opPUSH2, length[0], length[1],
		opPUSH1, 0x00,
		opRETURN,
	}
	stub[4] = byte(len(stub))

	out := make([]byte, 0, len(stub)+len(runtime))
	out = append(out, stub...)
	out = append(out, runtime...)
	return out
}

func uint16Bytes(n int) [2]byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(n))
	return b
}
