package migration

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/storagesync/storagesync/internal/errs"
	"github.com/storagesync/storagesync/internal/proof"
)

// MigrateChangesToProxy fetches a single proof for changedKeys at srcBlock
// on the source chain, registers srcBlock's state root on the relay, and
// submits the optimized proof with targetBlock to proxy.updateStorage in
// one transaction (spec.md §4.F migrateChangesToProxy). An empty changedKeys is a no-op
// success (spec.md §4.F tie-breaks).
func (e *Engine) MigrateChangesToProxy(ctx context.Context, changedKeys []common.Hash, srcBlock, targetBlock *big.Int) error {
	if e.state != Migrated {
		return errs.New(errs.State, "migrateChangesToProxy requires the Migrated state", "state", e.state.String())
	}
	if len(changedKeys) == 0 {
		e.logger.Info("migrateChangesToProxy: no changed keys, no-op")
		return nil
	}

	e.state = Synchronizing
	defer func() {
		if e.state == Synchronizing {
			e.state = Migrated
		}
	}()

	srcHeader, err := e.Source.HeaderByNumber(ctx, atBlock(srcBlock))
	if err != nil {
		e.state = Failed
		return err
	}

	p, err := proof.Assemble(ctx, e.Source, e.cfg.SourceAddress, changedKeys, atBlock(srcBlock), srcHeader.Root)
	if err != nil {
		e.state = Failed
		return err
	}

	addBlockTx, err := e.relay.AddBlock(e.signer, srcHeader.Root, srcBlock)
	if err != nil {
		e.state = Failed
		return err
	}
	addBlockReceipt, err := waitMined(ctx, e.Target.EthClient(), addBlockTx)
	if err != nil {
		e.state = Failed
		return errs.Wrap(errs.RPC, err, "relay.addBlock did not mine")
	}
	if addBlockReceipt.Status != types.ReceiptStatusSuccessful {
		e.state = Failed
		return errs.New(errs.RPC, "relay.addBlock reverted", "tx", addBlockTx.Hash())
	}

	rlpProof, err := p.Encode()
	if err != nil {
		e.state = Failed
		return errs.Wrap(errs.Verification, err, "encode optimized proof")
	}

	tx, err := e.proxy.UpdateStorage(e.signer, rlpProof, targetBlock)
	if err != nil {
		e.state = Failed
		return err
	}
	receipt, err := waitMined(ctx, e.Target.EthClient(), tx)
	if err != nil {
		e.state = Failed
		return errs.Wrap(errs.RPC, err, "proxy.updateStorage did not mine")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		e.state = Failed
		return errs.New(errs.RPC, "proxy.updateStorage reverted", "tx", tx.Hash())
	}

	e.srcBlock = srcBlock
	e.logger.Info("synchronized changes to proxy", "keys", len(changedKeys), "srcBlock", srcBlock, "targetBlock", targetBlock)
	return nil
}

// GetLatestBlockNumber reads the relay's globally latest attested block
// number (spec.md §4.F).
func (e *Engine) GetLatestBlockNumber(ctx context.Context) (*big.Int, error) {
	if e.relay == nil {
		return nil, errs.New(errs.State, "no relay attached")
	}
	return e.relay.GetLatestBlockNumber(ctx)
}

// GetCurrentBlockNumber reads the relay-reported block number for this
// engine's proxy and rewrites the engine's cached srcBlock to match, so
// subsequent diffs stay aligned with what the relay last attested
// (spec.md §4.F: "the 'current' query rewrites the engine's cached
// srcBlock").
func (e *Engine) GetCurrentBlockNumber(ctx context.Context) (*big.Int, error) {
	if e.relay == nil || e.proxy == nil {
		return nil, errs.New(errs.State, "no relay/proxy attached")
	}
	n, err := e.relay.GetCurrentBlockNumber(ctx, e.proxy.Address)
	if err != nil {
		return nil, err
	}
	e.srcBlock = n
	return n, nil
}
