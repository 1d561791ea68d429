package diff

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/storagesync/storagesync/internal/keyenum"
	"github.com/storagesync/storagesync/internal/rpcclient"
)

// getProofDiff implements spec.md §4.C's "getProof strategy": enumerate
// keys at syncedBlock, fetch eth_getProof for that key set at both
// the old synchronized block and the target block, and compare storage
// values entry by entry. Only the standard EIP-1186 method is required;
// it will not discover keys added to the source after syncedBlock — the
// caller is expected to interleave full enumerations periodically
// (spec.md §4.C).
func (e *Engine) getProofDiff(ctx context.Context, syncedBlock, srcBlock rpcclient.BlockTag) (Diff, error) {
	keys, err := keyenum.Enumerate(ctx, e.Source, e.SourceAddress, syncedBlock)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return Diff{}, nil
	}

	oldProof, err := e.Source.GetProof(ctx, e.SourceAddress, keys, syncedBlock)
	if err != nil {
		return nil, err
	}
	newProof, err := e.Source.GetProof(ctx, e.SourceAddress, keys, srcBlock)
	if err != nil {
		return nil, err
	}

	oldByKey := indexStorageProof(oldProof)
	newByKey := indexStorageProof(newProof)

	out := make(Diff, 0, len(keys))
	for _, key := range keys {
		oldVal := oldByKey[key]
		newVal := newByKey[key]
		if oldVal != newVal {
			out = append(out, Entry{Key: key, SrcValue: oldVal, TargetValue: newVal})
		}
	}
	return sortByKey(out), nil
}

// indexStorageProof maps an eth_getProof response's storage entries by
// slot key for quick comparison between two proofs of the same key set.
func indexStorageProof(res *rpcclient.AccountResult) map[common.Hash]common.Hash {
	out := make(map[common.Hash]common.Hash, len(res.StorageProof))
	for _, sp := range res.StorageProof {
		key := common.HexToHash(sp.Key)
		var val common.Hash
		if sp.Value != nil {
			val = common.BigToHash(sp.Value)
		}
		out[key] = val
	}
	return out
}
