package rpcclient

import (
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// ContractCallMsg is the facade's narrow, dependency-free mirror of
// ethereum.CallMsg, kept here so callers never need to import the root
// go-ethereum package themselves.
type ContractCallMsg struct {
	From  common.Address
	To    *common.Address
	Data  []byte
	Value *big.Int
}

func (m ContractCallMsg) toEth() ethereum.CallMsg {
	return ethereum.CallMsg{From: m.From, To: m.To, Data: m.Data, Value: m.Value}
}
