package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/storagesync/storagesync/internal/errs"
)

func toHash(out []interface{}) (common.Hash, error) {
	if len(out) != 1 {
		return common.Hash{}, errs.New(errs.RPC, "unexpected return arity decoding bytes32")
	}
	v, ok := out[0].([32]byte)
	if !ok {
		return common.Hash{}, errs.New(errs.RPC, "unexpected return type decoding bytes32")
	}
	return common.Hash(v), nil
}

func toAddress(out []interface{}) (common.Address, error) {
	if len(out) != 1 {
		return common.Address{}, errs.New(errs.RPC, "unexpected return arity decoding address")
	}
	v, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, errs.New(errs.RPC, "unexpected return type decoding address")
	}
	return v, nil
}

func toBool(out []interface{}) (bool, error) {
	if len(out) != 1 {
		return false, errs.New(errs.RPC, "unexpected return arity decoding bool")
	}
	v, ok := out[0].(bool)
	if !ok {
		return false, errs.New(errs.RPC, "unexpected return type decoding bool")
	}
	return v, nil
}

func toBigInt(out []interface{}) (*big.Int, error) {
	if len(out) != 1 {
		return nil, errs.New(errs.RPC, "unexpected return arity decoding uint256")
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, errs.New(errs.RPC, "unexpected return type decoding uint256")
	}
	return v, nil
}
