// Package contracts provides thin typed bindings over the relay and
// proxy contracts' ABI surface (spec.md §6). In place of abigen-generated
// code (this repo has no Solidity build step of its own — the relay and
// proxy are deployed from initcode supplied by the caller, not compiled
// here) these bindings
// wrap bind.BoundContract by hand, the same pattern geth-08-abigen uses
// for a runtime-parsed ABI.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const relayABIJSON = `[
	{"constant":false,"inputs":[{"name":"stateRoot","type":"bytes32"},{"name":"blockNumber","type":"uint256"}],"name":"addBlock","outputs":[],"type":"function"},
	{"constant":true,"inputs":[{"name":"blockNumber","type":"uint256"}],"name":"getStateRoot","outputs":[{"name":"","type":"bytes32"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"getSource","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"proxy","type":"address"}],"name":"getMigrationState","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"proxy","type":"address"}],"name":"getCurrentBlockNumber","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"getLatestBlockNumber","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"srcAccountProof","type":"bytes"},{"name":"proxyAccountProof","type":"bytes"},{"name":"encodedHeader","type":"bytes"},{"name":"proxy","type":"address"},{"name":"targetBlockNum","type":"uint256"},{"name":"srcBlockNum","type":"uint256"}],"name":"verifyMigrateContract","outputs":[],"type":"function"},
	{"constant":false,"inputs":[{"name":"blockHash","type":"uint256"}],"name":"setCurrentStateBlock","outputs":[],"type":"function"}
]`

const proxyABIJSON = `[
	{"constant":false,"inputs":[{"name":"keys","type":"bytes32[]"},{"name":"values","type":"bytes32[]"}],"name":"addStorage","outputs":[],"type":"function"},
	{"constant":false,"inputs":[{"name":"rlpProof","type":"bytes"},{"name":"blockNumber","type":"uint256"}],"name":"updateStorage","outputs":[],"type":"function"},
	{"constant":true,"inputs":[],"name":"getSourceAddress","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"getLogicAddress","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"getRelayAddress","outputs":[{"name":"","type":"address"}],"type":"function"}
]`

func parseABI(raw string) (abi.ABI, error) {
	return abi.JSON(strings.NewReader(raw))
}
