package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/storagesync/storagesync/internal/checkpoint"
	"github.com/storagesync/storagesync/internal/config"
	"github.com/storagesync/storagesync/internal/diff"
	"github.com/storagesync/storagesync/internal/keyenum"
	"github.com/storagesync/storagesync/internal/migration"
	"github.com/storagesync/storagesync/internal/proof"
	"github.com/storagesync/storagesync/internal/rpcclient"
)

func cmdStatus(ctx context.Context, source, target *rpcclient.Facade) error {
	srcHeader, err := source.HeaderByNumber(ctx, rpcclient.Latest())
	if err != nil {
		return fmt.Errorf("source head: %w", err)
	}
	targetHeader, err := target.HeaderByNumber(ctx, rpcclient.Latest())
	if err != nil {
		return fmt.Errorf("target head: %w", err)
	}
	srcChainID, err := source.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("source chainID: %w", err)
	}
	targetChainID, err := target.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("target chainID: %w", err)
	}
	fmt.Printf("source chain=%s block=%d hash=%s\n", srcChainID, srcHeader.Number.Uint64(), srcHeader.Hash())
	fmt.Printf("target chain=%s block=%d hash=%s\n", targetChainID, targetHeader.Number.Uint64(), targetHeader.Hash())
	return nil
}

func cmdEnumerate(ctx context.Context, cfg config.Config, source *rpcclient.Facade) error {
	tag := blockTagFromString(cfg.SourceBlockTag)
	keys, err := keyenum.Enumerate(ctx, source, cfg.SourceAddress, tag)
	if err != nil {
		return err
	}
	fmt.Printf("enumerated %d keys at %s\n", len(keys), tag)
	for _, k := range keys {
		fmt.Println(k.Hex())
	}
	return nil
}

// cmdProof exposes Component D (internal/proof) directly, fetching and
// locally verifying an EIP-1186 proof for cfg.SourceAddress at
// cfg.SourceBlockTag. With no keys, every enumerated slot is proved.
func cmdProof(ctx context.Context, cfg config.Config, source *rpcclient.Facade, keys []common.Hash) error {
	tag := blockTagFromString(cfg.SourceBlockTag)
	header, err := source.HeaderByNumber(ctx, tag)
	if err != nil {
		return err
	}
	if keys == nil {
		keys, err = keyenum.Enumerate(ctx, source, cfg.SourceAddress, tag)
		if err != nil {
			return err
		}
	}

	p, err := proof.Assemble(ctx, source, cfg.SourceAddress, keys, tag, header.Root)
	if err != nil {
		return err
	}

	fmt.Printf("verified proof for %s at block %d (stateRoot=%s)\n", cfg.SourceAddress.Hex(), header.Number.Uint64(), header.Root)
	fmt.Printf("account: nonce=%d balance=%s storageHash=%s codeHash=%s\n", p.Account.Nonce, p.Account.Balance, p.Account.StorageHash, p.Account.CodeHash)
	fmt.Printf("accountNodes=%d storageProofs=%d\n", len(p.AccountNodes), len(p.StorageProofs))

	enc, err := p.Encode()
	if err != nil {
		return err
	}
	fmt.Printf("encoded optimized proof: %d bytes\n", len(enc))
	return nil
}

func cmdDiff(ctx context.Context, cfg config.Config, source, target *rpcclient.Facade, strategy string) error {
	engine := &diff.Engine{
		Source:        source,
		Target:        target,
		SourceAddress: cfg.SourceAddress,
		TargetAddress: cfg.ProxyAddress,
	}
	fromTag := blockTagFromString(cfg.SourceBlockTag)
	toTag := blockTagFromString(cfg.TargetBlockTag)

	d, err := engine.Compute(ctx, diff.Strategy(strategy), fromTag, toTag)
	if err != nil {
		return err
	}
	fmt.Printf("diff (%s): %d changed slots\n", strategy, len(d))
	for _, entry := range d {
		fmt.Printf("%s: %s -> %s\n", entry.Key.Hex(), entry.SrcValue.Hex(), entry.TargetValue.Hex())
	}
	return nil
}

func cmdMigrate(ctx context.Context, cfg config.Config, source, target *rpcclient.Facade, srcBlock *big.Int) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	engine := migration.New(cfg, source, target)
	if err := engine.Init(ctx); err != nil {
		return err
	}
	if engine.State() == migration.Migrated {
		fmt.Println("proxy already migrated, nothing to do")
		return nil
	}
	if err := engine.MigrateSrcContract(ctx, srcBlock); err != nil {
		return err
	}
	fmt.Printf("migration complete: relay=%s proxy=%s\n", engine.RelayAddress().Hex(), engine.ProxyAddress().Hex())
	return nil
}

func cmdSync(ctx context.Context, cfg config.Config, source, target *rpcclient.Facade, srcBlock, targetBlock *big.Int, checkpointDB string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	engine := migration.New(cfg, source, target)
	if err := engine.Init(ctx); err != nil {
		return err
	}
	if engine.State() != migration.Migrated {
		return fmt.Errorf("proxy is not migrated yet (state=%s); run migrate first", engine.State())
	}

	diffEngine := &diff.Engine{
		Source:        source,
		Target:        target,
		SourceAddress: cfg.SourceAddress,
		TargetAddress: engine.ProxyAddress(),
	}
	d, err := diffEngine.Compute(ctx, diff.StrategyStorage, rpcclient.AtBlockBig(srcBlock), rpcclient.AtBlockBig(targetBlock))
	if err != nil {
		return err
	}

	if err := engine.MigrateChangesToProxy(ctx, d.Keys(), srcBlock, targetBlock); err != nil {
		return err
	}
	fmt.Printf("synchronized %d changed keys to proxy %s\n", len(d), engine.ProxyAddress().Hex())

	if checkpointDB != "" {
		store, err := checkpoint.Open(checkpointDB)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(ctx, engine.ProxyAddress(), targetBlock); err != nil {
			return err
		}
		fmt.Printf("checkpointed proxy=%s block=%s\n", engine.ProxyAddress().Hex(), targetBlock)
	}
	return nil
}

func blockTagFromString(s string) rpcclient.BlockTag {
	switch s {
	case "latest", "":
		return rpcclient.Latest()
	case "earliest":
		return rpcclient.Earliest()
	case "pending":
		return rpcclient.Pending()
	default:
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return rpcclient.Latest()
		}
		return rpcclient.AtBlockBig(n)
	}
}
