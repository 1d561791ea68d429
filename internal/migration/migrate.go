package migration

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/sync/errgroup"

	"github.com/storagesync/storagesync/internal/bytecode"
	"github.com/storagesync/storagesync/internal/contracts"
	"github.com/storagesync/storagesync/internal/errs"
	"github.com/storagesync/storagesync/internal/header"
	"github.com/storagesync/storagesync/internal/keyenum"
	"github.com/storagesync/storagesync/internal/proof"
	"github.com/storagesync/storagesync/internal/rpcclient"
)

// MigrateSrcContract executes the full migration of the configured
// source contract at srcBlock onto a freshly-deployed (or attached)
// relay/proxy pair (spec.md §4.F migrateSrcContract). Every step is a
// hard failure on error. The engine is set to Failed when waiting for a
// sent transaction fails, when relay.addBlock reverts, when bulk migration
// or verification fails, or when the migration flag reads back false; any
// other error returns with the state the failing step found
// (Initialized, LogicDeployed or ProxyDeployed).
func (e *Engine) MigrateSrcContract(ctx context.Context, srcBlock *big.Int) error {
	if e.state != Initialized {
		return errs.New(errs.State, "migrateSrcContract requires the Initialized state", "state", e.state.String())
	}
	srcTag := atBlock(srcBlock)

	// 1. Assert source address has non-empty code at srcBlock.
	code, err := e.Source.GetCode(ctx, e.cfg.SourceAddress, srcTag)
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return errs.New(errs.NotFound, "source contract has no code at srcBlock", "address", e.cfg.SourceAddress, "block", srcBlock)
	}

	// 2. If no relay address, deploy a fresh relay.
	if e.relay == nil {
		if len(e.cfg.RelayInitcode) == 0 {
			return errs.New(errs.Config, "relayInitcode is required to deploy a fresh relay")
		}
		relay, tx, err := contracts.DeployRelay(ctx, e.signer, e.Target.EthClient(), e.cfg.RelayInitcode)
		if err != nil {
			return err
		}
		if _, err := waitMined(ctx, e.Target.EthClient(), tx); err != nil {
			e.state = Failed
			return errs.Wrap(errs.RPC, err, "relay deployment did not mine")
		}
		e.relay = relay
	}

	// 3. Enumerate all keys and fetch one proof covering them.
	keys, err := keyenum.Enumerate(ctx, e.Source, e.cfg.SourceAddress, srcTag)
	if err != nil {
		return err
	}
	srcHeader, err := e.Source.HeaderByNumber(ctx, srcTag)
	if err != nil {
		return err
	}
	srcProof, err := proof.Assemble(ctx, e.Source, e.cfg.SourceAddress, keys, srcTag, srcHeader.Root)
	if err != nil {
		return err
	}

	// 4. Register the attested source state root on the target.
	addBlockTx, err := e.relay.AddBlock(e.signer, srcHeader.Root, srcHeader.Number)
	if err != nil {
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

	// 5. Clone logic and deploy.
	initcode, err := bytecode.Clone(ctx, e.Source, e.cfg.SourceAddress, srcTag)
	if err != nil {
		return err
	}
	logicAddr, logicTx, err := deployBytecode(ctx, e.signer, e.Target.EthClient(), initcode)
	if err != nil {
		return err
	}
	if _, err := waitMined(ctx, e.Target.EthClient(), logicTx); err != nil {
		e.state = Failed
		return errs.Wrap(errs.RPC, err, "logic deployment did not mine")
	}
	e.logic = logicAddr
	e.state = LogicDeployed

	// 6. Deploy proxy with embedded relay+logic+source addresses.
	if len(e.cfg.ProxyInitcode) == 0 {
		return errs.New(errs.Config, "proxyInitcode is required to deploy a fresh proxy")
	}
	proxyContract, proxyTx, err := contracts.DeployProxy(ctx, e.signer, e.Target.EthClient(), e.cfg.ProxyInitcode, e.relay.Address, e.logic, e.cfg.SourceAddress)
	if err != nil {
		return err
	}
	if _, err := waitMined(ctx, e.Target.EthClient(), proxyTx); err != nil {
		e.state = Failed
		return errs.Wrap(errs.RPC, err, "proxy deployment did not mine")
	}
	e.proxy = proxyContract
	e.state = ProxyDeployed

	// 7. Bulk-migrate keys in chunks of K, at most B concurrent.
	if err := e.bulkMigrate(ctx, keys, srcProof); err != nil {
		e.state = Failed
		return err
	}

	// 8. Post-migration verification.
	if err := e.verifyMigration(ctx, srcBlock); err != nil {
		e.state = Failed
		return err
	}

	// 9. Read back the migration flag.
	migrated, err := e.relay.GetMigrationState(ctx, e.proxy.Address)
	if err != nil {
		return err
	}
	if !migrated {
		e.state = Failed
		return errs.New(errs.Verification, "relay.verifyMigrateContract left the migration flag false", "proxy", e.proxy.Address)
	}

	e.srcBlock = srcBlock
	e.state = Migrated
	e.logger.Info("migration complete", "proxy", e.proxy.Address, "relay", e.relay.Address, "srcBlock", srcBlock)
	return nil
}

// bulkMigrate splits the enumerated (key, value) pairs into chunks of
// chunkSize and dispatches at most batchSize chunk-transactions
// concurrently, waiting for all receipts before returning (spec.md §4.F
// step 7).
func (e *Engine) bulkMigrate(ctx context.Context, keys []common.Hash, p *proof.Proof) error {
	values := make([]common.Hash, len(keys))
	valueByKey := make(map[common.Hash]common.Hash, len(p.StorageProofs))
	for _, entry := range p.StorageProofs {
		valueByKey[entry.Key] = common.BigToHash(entry.Value)
	}
	for i, k := range keys {
		values[i] = valueByKey[k]
	}

	chunks := chunkKeyValues(keys, values, e.chunkSize())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchSize())
	receipts := make([]*types.Receipt, len(chunks))
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			tx, err := e.proxy.AddStorage(e.signer, chunk[0], chunk[1])
			if err != nil {
				return err
			}
			receipt, err := waitMined(gctx, e.Target.EthClient(), tx)
			if err != nil {
				return errs.Wrap(errs.RPC, err, "addStorage chunk did not mine", "chunk", i)
			}
			if receipt.Status != types.ReceiptStatusSuccessful {
				return errs.New(errs.RPC, "addStorage chunk reverted", "chunk", i, "tx", tx.Hash())
			}
			receipts[i] = receipt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errs.Wrap(errs.Fatal, err, "bulk storage migration failed")
	}

	var totalGas uint64
	for _, r := range receipts {
		totalGas += r.GasUsed
	}
	e.logger.Info("bulk migration complete", "chunks", len(chunks), "totalGasUsed", totalGas)
	return nil
}

// verifyMigration fetches eth_getProof(proxy, []) on the target chain,
// RLP-encodes the target block header, and submits both account proofs
// plus the block numbers to relay.verifyMigrateContract (spec.md §4.F
// step 8).
func (e *Engine) verifyMigration(ctx context.Context, srcBlock *big.Int) error {
	targetHeader, err := e.Target.HeaderByNumber(ctx, rpcclient.Latest())
	if err != nil {
		return err
	}
	encodedHeader, err := header.FromTypesHeader(targetHeader).Encode()
	if err != nil {
		return errs.Wrap(errs.Verification, err, "encode target block header")
	}

	proxyAcctProof, err := proof.Assemble(ctx, e.Target, e.proxy.Address, nil, atBlock(targetHeader.Number), targetHeader.Root)
	if err != nil {
		return err
	}
	proxyAccountProof, err := encodeNodes(proxyAcctProof.AccountNodes)
	if err != nil {
		return errs.Wrap(errs.Verification, err, "encode proxy account proof nodes")
	}

	srcHeader, err := e.Source.HeaderByNumber(ctx, atBlock(srcBlock))
	if err != nil {
		return err
	}
	srcAcctProof, err := proof.Assemble(ctx, e.Source, e.cfg.SourceAddress, nil, atBlock(srcBlock), srcHeader.Root)
	if err != nil {
		return err
	}
	srcAccountProof, err := encodeNodes(srcAcctProof.AccountNodes)
	if err != nil {
		return errs.Wrap(errs.Verification, err, "encode source account proof nodes")
	}

	tx, err := e.relay.VerifyMigrateContract(e.signer, srcAccountProof, proxyAccountProof, encodedHeader, e.proxy.Address, targetHeader.Number, srcBlock)
	if err != nil {
		return err
	}
	receipt, err := waitMined(ctx, e.Target.EthClient(), tx)
	if err != nil {
		return errs.Wrap(errs.RPC, err, "relay.verifyMigrateContract did not mine")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return errs.New(errs.Verification, "relay.verifyMigrateContract reverted", "tx", tx.Hash())
	}
	return nil
}

func encodeNodes(nodes [][]byte) ([]byte, error) {
	return rlp.EncodeToBytes(nodes)
}

// chunkKeyValues splits a parallel (keys, values) slice pair into
// fixed-size chunks of at most chunkSize pairs each (spec.md §4.F step
// 7: "split (keys, values) into fixed-size chunks K").
func chunkKeyValues(keys, values []common.Hash, chunkSize int) [][2][]common.Hash {
	var chunks [][2][]common.Hash
	for start := 0; start < len(keys); start += chunkSize {
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunks = append(chunks, [2][]common.Hash{keys[start:end], values[start:end]})
	}
	return chunks
}
