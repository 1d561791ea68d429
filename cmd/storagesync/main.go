// storagesync is the capstone CLI stitching the engine's components into
// one binary, the way geth-25-toolbox stitches its modules into one
// Swiss-Army-knife command (spec.md, whole document).
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/storagesync/storagesync/internal/config"
	"github.com/storagesync/storagesync/internal/rpcclient"
)

// readInitcode loads a contract's deployment bytecode from path, accepting
// either a 0x-prefixed hex string or raw hex text (the format geth-11-abi's
// example fixtures use for compiled bytecode files).
func readInitcode(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x"))
}

func defaultEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg := config.Defaults()

	sourceRPC := flag.String("source-rpc", defaultEnv("STORAGESYNC_SOURCE_RPC", ""), "source chain RPC endpoint")
	targetRPC := flag.String("target-rpc", defaultEnv("STORAGESYNC_TARGET_RPC", ""), "target chain RPC endpoint")
	sourceAPIKey := flag.String("source-api-key", os.Getenv("STORAGESYNC_SOURCE_API_KEY"), "source RPC API key")
	targetAPIKey := flag.String("target-api-key", os.Getenv("STORAGESYNC_TARGET_API_KEY"), "target RPC API key")
	sourceAddr := flag.String("source-address", "", "source contract address")
	relayAddr := flag.String("relay-address", "", "existing relay contract address")
	proxyAddr := flag.String("proxy-address", "", "existing proxy contract address")
	keystorePath := flag.String("keystore", "", "deployer keystore directory")
	keystorePass := flag.String("keystore-pass", "", "deployer keystore passphrase")
	relayInitcodePath := flag.String("relay-initcode", "", "path to relay contract initcode (hex, 0x-prefixed or raw)")
	proxyInitcodePath := flag.String("proxy-initcode", "", "path to proxy contract initcode (hex, 0x-prefixed or raw)")
	batchSize := flag.Int("batch-size", config.DefaultBatchSize, "max in-flight RPC calls per pipeline stage")
	chunkSize := flag.Int("chunk-size", config.DefaultChunkSize, "keys per addStorage transaction")
	srcBlockTag := flag.String("src-block", "latest", "source block tag or number")
	targetBlockTag := flag.String("target-block", "latest", "target block tag or number")
	strategy := flag.String("strategy", "storage", "diff strategy: storage|getProof|srcTx")
	checkpointDB := flag.String("checkpoint-db", defaultEnv("STORAGESYNC_CHECKPOINT_DB", ""), "sqlite path to record (proxy, block) checkpoints after sync; empty disables checkpointing")
	keysFlag := flag.String("keys", "", "comma-separated storage keys for the proof subcommand; empty enumerates every slot")
	timeout := flag.Duration("timeout", 60*time.Second, "overall operation timeout")
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("usage: storagesync <status|enumerate|diff|proof|migrate|sync> [flags] ...")
	}
	cmd := flag.Arg(0)

	cfg.SourceEndpoint = *sourceRPC
	cfg.TargetEndpoint = *targetRPC
	cfg.SourceAPIKey = *sourceAPIKey
	cfg.TargetAPIKey = *targetAPIKey
	cfg.KeystorePath = *keystorePath
	cfg.KeystorePassword = *keystorePass
	cfg.BatchSize = *batchSize
	cfg.ChunkSize = *chunkSize
	cfg.SourceBlockTag = *srcBlockTag
	cfg.TargetBlockTag = *targetBlockTag
	if *sourceAddr != "" {
		cfg.SourceAddress = common.HexToAddress(*sourceAddr)
	}
	if *relayAddr != "" {
		cfg.RelayAddress = common.HexToAddress(*relayAddr)
	}
	if *proxyAddr != "" {
		cfg.ProxyAddress = common.HexToAddress(*proxyAddr)
	}
	if *relayInitcodePath != "" {
		initcode, err := readInitcode(*relayInitcodePath)
		if err != nil {
			log.Fatalf("relay initcode: %v", err)
		}
		cfg.RelayInitcode = initcode
	}
	if *proxyInitcodePath != "" {
		initcode, err := readInitcode(*proxyInitcodePath)
		if err != nil {
			log.Fatalf("proxy initcode: %v", err)
		}
		cfg.ProxyInitcode = initcode
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	source, err := rpcclient.Dial(ctx, "source", cfg.SourceEndpoint, cfg.SourceAPIKey, cfg.BatchSize)
	if err != nil {
		log.Fatalf("dial source: %v", err)
	}
	defer source.Close()

	target, err := rpcclient.Dial(ctx, "target", cfg.TargetEndpoint, cfg.TargetAPIKey, cfg.BatchSize)
	if err != nil {
		log.Fatalf("dial target: %v", err)
	}
	defer target.Close()

	var cmdErr error
	switch cmd {
	case "status":
		cmdErr = cmdStatus(ctx, source, target)
	case "enumerate":
		cmdErr = cmdEnumerate(ctx, cfg, source)
	case "diff":
		cmdErr = cmdDiff(ctx, cfg, source, target, strategyFromFlag(*strategy))
	case "proof":
		cmdErr = cmdProof(ctx, cfg, source, parseKeys(*keysFlag))
	case "migrate":
		if len(flag.Args()) < 2 {
			log.Fatal("migrate <srcBlock>")
		}
		srcBlock, ok := new(big.Int).SetString(flag.Arg(1), 10)
		if !ok {
			log.Fatalf("invalid srcBlock: %s", flag.Arg(1))
		}
		cmdErr = cmdMigrate(ctx, cfg, source, target, srcBlock)
	case "sync":
		if len(flag.Args()) < 3 {
			log.Fatal("sync <srcBlock> <targetBlock>")
		}
		srcBlock, ok1 := new(big.Int).SetString(flag.Arg(1), 10)
		targetBlock, ok2 := new(big.Int).SetString(flag.Arg(2), 10)
		if !ok1 || !ok2 {
			log.Fatalf("invalid block numbers: %s %s", flag.Arg(1), flag.Arg(2))
		}
		cmdErr = cmdSync(ctx, cfg, source, target, srcBlock, targetBlock, *checkpointDB)
	default:
		log.Fatalf("unknown subcommand: %s", cmd)
	}

	if cmdErr != nil {
		log.Fatal(cmdErr)
	}
}

// parseKeys splits a comma-separated list of hex storage keys; an empty
// string yields a nil slice, which cmdProof treats as "enumerate everything".
func parseKeys(s string) []common.Hash {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	keys := make([]common.Hash, len(parts))
	for i, p := range parts {
		keys[i] = common.HexToHash(strings.TrimSpace(p))
	}
	return keys
}

func strategyFromFlag(s string) string {
	switch s {
	case "storage", "getProof", "srcTx":
		return s
	default:
		fmt.Fprintf(os.Stderr, "unknown strategy %q, defaulting to storage\n", s)
		return "storage"
	}
}
