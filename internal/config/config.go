// Package config holds the engine's enumerated configuration object
// (spec.md §9, "Dynamic config object") and resolves deployer credentials
// into a transaction signer the way geth-03-keys-addresses resolves a
// keystore account.
package config

import (
	"bytes"
	"context"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/storagesync/storagesync/internal/errs"
)

const (
	DefaultGasLimit  = uint64(3_000_000)
	DefaultBatchSize = 50
	DefaultChunkSize = 100
)

// Config is the engine's enumerated configuration (spec.md §9). Every
// field either carries a default (set by Defaults) or a documented
// "required when…" precondition checked by Validate.
type Config struct {
	SourceEndpoint string
	TargetEndpoint string
	SourceAPIKey   string
	TargetAPIKey   string

	KeystorePath     string
	KeystorePassword string

	// NodeAccount, when set and KeystorePath is empty, is an address the
	// connected target node already holds unlocked; ResolveSigner then
	// defers each transaction's signature to the node via
	// eth_signTransaction instead of decrypting a local keystore file
	// (spec.md §4.F init(): "keystore path + password or an unlocked node
	// account").
	NodeAccount common.Address

	GasLimit  uint64
	BatchSize int
	ChunkSize int

	RelayAddress  common.Address
	ProxyAddress  common.Address
	LogicAddress  common.Address
	SourceAddress common.Address

	SourceBlockTag string
	TargetBlockTag string

	// RelayInitcode and ProxyInitcode are only required when
	// migrateSrcContract has to deploy a fresh relay or proxy (spec.md
	// §4.F steps 2 and 6); neither contract has a source-chain bytecode
	// counterpart the Bytecode Cloner can fetch, so their initcode is
	// supplied out of band.
	RelayInitcode []byte
	ProxyInitcode []byte
}

// Defaults returns a Config with every documented default applied; the
// caller still has to fill in the required fields before calling
// Validate.
func Defaults() Config {
	return Config{
		GasLimit:       DefaultGasLimit,
		BatchSize:      DefaultBatchSize,
		ChunkSize:      DefaultChunkSize,
		SourceBlockTag: "latest",
		TargetBlockTag: "latest",
	}
}

// Validate checks every "required when…" precondition named in spec.md
// §9 and returns the first violation as an errs.Config error.
func (c Config) Validate() error {
	if c.SourceEndpoint == "" {
		return errs.New(errs.Config, "sourceEndpoint is required")
	}
	if c.TargetEndpoint == "" {
		return errs.New(errs.Config, "targetEndpoint is required")
	}
	if c.SourceAddress == (common.Address{}) {
		return errs.New(errs.Config, "sourceAddress is required")
	}
	if c.KeystorePath == "" && c.NodeAccount == (common.Address{}) {
		return errs.New(errs.Config, "either keystorePath or nodeAccount is required to sign target-chain transactions")
	}
	// A proxy address is only meaningful together with the relay it was
	// deployed against — reading back embedded addresses (init()'s "if a
	// proxy address is given" step) needs both.
	if c.ProxyAddress != (common.Address{}) && c.RelayAddress == (common.Address{}) {
		return errs.New(errs.Config, "relayAddress is required when proxyAddress is set")
	}
	if c.BatchSize <= 0 {
		return errs.New(errs.Config, "batchSize must be positive", "batchSize", c.BatchSize)
	}
	if c.ChunkSize <= 0 {
		return errs.New(errs.Config, "chunkSize must be positive", "chunkSize", c.ChunkSize)
	}
	return nil
}

// ResolveSigner resolves deployer credentials into a *bind.TransactOpts
// for chainID (spec.md §4.F init(): "resolves deployer credentials
// (keystore path + password, or an unlocked node account)"). When
// KeystorePath is set it decrypts the keystore file, following
// geth-03-keys-addresses's keystore.NewKeyStore + Unlock pattern but
// deriving a signer instead of just proving account recovery. Otherwise
// it defers signing to rpcClient's NodeAccount, which the connected node
// must already hold unlocked.
func (c Config) ResolveSigner(chainID *big.Int, rpcClient *rpc.Client) (*bind.TransactOpts, error) {
	if c.KeystorePath != "" {
		ks := keystore.NewKeyStore(c.KeystorePath, keystore.StandardScryptN, keystore.StandardScryptP)
		accounts := ks.Accounts()
		if len(accounts) == 0 {
			return nil, errs.New(errs.Config, "no accounts found in keystore", "path", c.KeystorePath)
		}
		account := accounts[0]

		keyJSON, err := os.ReadFile(account.URL.Path)
		if err != nil {
			return nil, errs.Wrap(errs.Config, err, "read keystore file", "path", account.URL.Path)
		}

		opts, err := bind.NewTransactorWithChainID(bytes.NewReader(keyJSON), c.KeystorePassword, chainID)
		if err != nil {
			return nil, errs.Wrap(errs.Config, err, "decrypt keystore", "address", account.Address)
		}
		opts.GasLimit = c.GasLimit
		return opts, nil
	}

	if c.NodeAccount == (common.Address{}) {
		return nil, errs.New(errs.Config, "neither keystorePath nor nodeAccount set")
	}
	if rpcClient == nil {
		return nil, errs.New(errs.Config, "nodeAccount signing requires an rpc client")
	}
	opts := nodeAccountTransactOpts(rpcClient, c.NodeAccount)
	opts.GasLimit = c.GasLimit
	return opts, nil
}

// nodeAccountTransactOpts builds a TransactOpts whose Signer asks the
// connected node to sign (but not send) a transaction via
// eth_signTransaction, the standard JSON-RPC method nodes expose for an
// account they hold unlocked — analogous to the accounts.Manager-backed
// unlock flow geth-03-keys-addresses drives locally, but performed
// server-side instead of against a local keystore.
func nodeAccountTransactOpts(rpcClient *rpc.Client, account common.Address) *bind.TransactOpts {
	return &bind.TransactOpts{
		From: account,
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if addr != account {
				return nil, errs.New(errs.Config, "signer address mismatch", "want", account, "got", addr)
			}
			args := map[string]interface{}{
				"from":  account,
				"to":    tx.To(),
				"gas":   hexutil.Uint64(tx.Gas()),
				"value": (*hexutil.Big)(tx.Value()),
				"input": hexutil.Bytes(tx.Data()),
				"nonce": hexutil.Uint64(tx.Nonce()),
			}
			if gasPrice := tx.GasPrice(); gasPrice != nil {
				args["gasPrice"] = (*hexutil.Big)(gasPrice)
			}

			var result struct {
				Raw hexutil.Bytes `json:"raw"`
			}
			if err := rpcClient.CallContext(context.Background(), &result, "eth_signTransaction", args); err != nil {
				return nil, errs.Wrap(errs.RPC, err, "eth_signTransaction", "account", account)
			}
			signed := new(types.Transaction)
			if err := signed.UnmarshalBinary(result.Raw); err != nil {
				return nil, errs.Wrap(errs.RPC, err, "decode eth_signTransaction result", "account", account)
			}
			return signed, nil
		},
	}
}
