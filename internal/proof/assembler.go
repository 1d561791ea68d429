package proof

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/storagesync/storagesync/internal/rpcclient"
)

// Facade is the narrow slice of internal/rpcclient the assembler needs.
type Facade interface {
	GetProof(ctx context.Context, addr common.Address, keys []common.Hash, tag rpcclient.BlockTag) (*rpcclient.AccountResult, error)
}

// Assemble fetches eth_getProof for addr/keys at block tag, canonicalizes
// the response, and locally verifies every storage proof against the
// returned storageHash and the account proof against stateRoot before
// returning (spec.md §4.D). A verification failure here is fatal — the
// caller must not submit an unverified proof.
func Assemble(ctx context.Context, f Facade, addr common.Address, keys []common.Hash, tag rpcclient.BlockTag, stateRoot common.Hash) (*Proof, error) {
	logger := log.New("component", "proof", "address", addr, "keys", len(keys))

	res, err := f.GetProof(ctx, addr, keys, tag)
	if err != nil {
		return nil, err
	}

	accountNodes := decodeHexNodes(res.AccountProof)
	p := &Proof{
		Account: AccountRecord{
			Nonce:       res.Nonce,
			Balance:     orZero(res.Balance),
			StorageHash: res.StorageHash,
			CodeHash:    res.CodeHash,
		},
		AccountNodes: accountNodes,
	}

	p.StorageProofs = make([]StorageEntry, len(res.StorageProof))
	for i, sp := range res.StorageProof {
		p.StorageProofs[i] = StorageEntry{
			Key:   common.HexToHash(sp.Key),
			Value: orZero(sp.Value),
			Nodes: decodeHexNodes(sp.Proof),
		}
	}

	if err := verifyAccount(stateRoot, addr, p.Account, p.AccountNodes); err != nil {
		return nil, err
	}
	for _, e := range p.StorageProofs {
		if err := verifyStorageEntry(p.Account.StorageHash, e); err != nil {
			return nil, err
		}
	}

	logger.Debug("assembled and verified proof", "storageEntries", len(p.StorageProofs))
	return p, nil
}

func decodeHexNodes(hexNodes []string) [][]byte {
	out := make([][]byte, len(hexNodes))
	for i, n := range hexNodes {
		out[i] = common.FromHex(n)
	}
	return out
}
