package diff

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/storagesync/storagesync/internal/keyenum"
	"github.com/storagesync/storagesync/internal/rpcclient"
)

// storageDiff implements spec.md §4.C's "storage strategy": enumerate both
// contracts, take the union of both key sets, then for every key
// present on either side fetch the current value at the respective block
// and emit an entry whenever the two values disagree. Requires the Parity
// extension on both endpoints.
func (e *Engine) storageDiff(ctx context.Context, srcBlock, targetBlock rpcclient.BlockTag) (Diff, error) {
	srcKeys, err := keyenum.Enumerate(ctx, e.Source, e.SourceAddress, srcBlock)
	if err != nil {
		return nil, err
	}
	targetKeys, err := keyenum.Enumerate(ctx, e.Target, e.TargetAddress, targetBlock)
	if err != nil {
		return nil, err
	}

	union := make(map[common.Hash]struct{}, len(srcKeys)+len(targetKeys))
	for _, k := range srcKeys {
		union[k] = struct{}{}
	}
	for _, k := range targetKeys {
		union[k] = struct{}{}
	}

	out := make(Diff, 0, len(union))
	for key := range union {
		srcVal, err := e.Source.StorageAt(ctx, e.SourceAddress, key, srcBlock)
		if err != nil {
			return nil, err
		}
		targetVal, err := e.Target.StorageAt(ctx, e.TargetAddress, key, targetBlock)
		if err != nil {
			return nil, err
		}
		if srcVal != targetVal {
			out = append(out, Entry{Key: key, SrcValue: srcVal, TargetValue: targetVal})
		}
	}
	return sortByKey(out), nil
}
