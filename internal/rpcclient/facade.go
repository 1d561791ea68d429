// Package rpcclient is the engine's single typed gateway to source and
// target node JSON-RPC methods (spec.md §4.A). It owns its transport;
// every other component borrows it immutably and never dials a node
// itself (spec.md §9: "Shared-owned RPC handle").
package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/storagesync/storagesync/internal/errs"
)

// DefaultBatchSize is B, the default bound on in-flight requests admitted
// to the transport per pipeline stage (spec.md §4.A).
const DefaultBatchSize = 50

// Facade is the engine's gateway to one node's JSON-RPC surface. Failure of
// any individual call is a fatal error for the current operation; the
// facade performs no retries (spec.md §4.A, §7).
type Facade struct {
	eth   *ethclient.Client
	geth  *gethclient.Client
	rpc   *rpc.Client
	label string // "source" or "target", for log context
	batch int    // B
}

// Dial connects to a node endpoint. apiKey, when non-empty, is appended as
// a trailing "/<apiKey>" path segment the way hosted RPC providers expect; the
// engine never inspects or logs it.
func Dial(ctx context.Context, label, endpoint, apiKey string, batchSize int) (*Facade, error) {
	url := endpoint
	if apiKey != "" {
		url = endpoint + "/" + apiKey
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errs.Wrap(errs.RPC, err, "dial", "endpoint", endpoint, "label", label)
	}
	return &Facade{
		eth:   ethclient.NewClient(rc),
		geth:  gethclient.New(rc),
		rpc:   rc,
		label: label,
		batch: batchSize,
	}, nil
}

// Close releases the underlying transport.
func (f *Facade) Close() {
	if f.rpc != nil {
		f.rpc.Close()
	}
}

// BatchSize returns B, the configured fan-out bound for this facade.
func (f *Facade) BatchSize() int { return f.batch }

// RunBounded fans n independent units of work out across at most B
// concurrently in-flight tasks, joining them before returning (spec.md §5:
// "up to B outstanding RPC calls per pipeline stage"). The first error
// cancels the remaining work and is returned; callers treat any error
// here as fatal for the current operation, per spec.md §7.
func (f *Facade) RunBounded(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.batch)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error { return fn(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		return errs.Wrap(errs.Fatal, err, "bounded batch failed", "label", f.label, "n", n)
	}
	return nil
}

// GetCode calls eth_getCode. The block parameter is sent via tag.rpcParam()
// rather than ethclient's typed *big.Int argument, since the latter has no
// way to express the earliest/pending sentinels (spec.md §3: Block tag).
func (f *Facade) GetCode(ctx context.Context, addr common.Address, tag BlockTag) ([]byte, error) {
	var raw hexutil.Bytes
	if err := f.rpc.CallContext(ctx, &raw, "eth_getCode", addr, tag.rpcParam()); err != nil {
		return nil, errs.Wrap(errs.RPC, err, "eth_getCode", "address", addr, "block", tag)
	}
	return raw, nil
}

// HeaderByNumber calls eth_getBlockByNumber with includeTransactions=false.
// types.Header unmarshals directly from the RPC's block JSON (it ignores
// the transactions/uncles/etc. fields it doesn't declare).
func (f *Facade) HeaderByNumber(ctx context.Context, tag BlockTag) (*types.Header, error) {
	var head *types.Header
	if err := f.rpc.CallContext(ctx, &head, "eth_getBlockByNumber", tag.rpcParam(), false); err != nil {
		return nil, errs.Wrap(errs.RPC, err, "eth_getBlockByNumber", "block", tag)
	}
	if head == nil {
		return nil, errs.New(errs.NotFound, "no block at tag", "block", tag)
	}
	return head, nil
}

// rpcBlockBody is the slice of eth_getBlockByNumber's full-transaction
// response this facade consumes; the header fields are decoded separately
// into *types.Header from the same raw payload.
type rpcBlockBody struct {
	Transactions []*types.Transaction `json:"transactions"`
}

// BlockByNumber calls eth_getBlockByNumber with includeTransactions=true.
// Uncle headers are not fetched back (this engine never consults them);
// every chain it targets is post-merge/PoA and carries no uncles.
func (f *Facade) BlockByNumber(ctx context.Context, tag BlockTag) (*types.Block, error) {
	var raw json.RawMessage
	if err := f.rpc.CallContext(ctx, &raw, "eth_getBlockByNumber", tag.rpcParam(), true); err != nil {
		return nil, errs.Wrap(errs.RPC, err, "eth_getBlockByNumber", "block", tag, "includeTxs", true)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errs.New(errs.NotFound, "no block at tag", "block", tag)
	}
	var head types.Header
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, errs.Wrap(errs.RPC, err, "decode block header", "block", tag)
	}
	var body rpcBlockBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, errs.Wrap(errs.RPC, err, "decode block body", "block", tag)
	}
	return types.NewBlockWithHeader(&head).WithBody(body.Transactions, nil), nil
}

// TransactionByHash calls eth_getTransactionByHash.
func (f *Facade) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	tx, pending, err := f.eth.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, false, errs.Wrap(errs.RPC, err, "eth_getTransactionByHash", "hash", hash)
	}
	return tx, pending, nil
}

// TransactionReceipt calls eth_getTransactionReceipt.
func (f *Facade) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	r, err := f.eth.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, errs.Wrap(errs.RPC, err, "eth_getTransactionReceipt", "hash", hash)
	}
	return r, nil
}

// StorageAt calls eth_getStorageAt for a single 32-byte slot key.
func (f *Facade) StorageAt(ctx context.Context, addr common.Address, key common.Hash, tag BlockTag) (common.Hash, error) {
	var raw hexutil.Bytes
	if err := f.rpc.CallContext(ctx, &raw, "eth_getStorageAt", addr, key, tag.rpcParam()); err != nil {
		return common.Hash{}, errs.Wrap(errs.RPC, err, "eth_getStorageAt", "address", addr, "key", key, "block", tag)
	}
	return common.BytesToHash(raw), nil
}

// AccountResult mirrors the EIP-1186 GetProof bundle (spec.md §3); it is
// gethclient's own result type, decoded here directly off eth_getProof so
// the block parameter can carry the earliest/pending sentinels gethclient's
// *big.Int-only signature cannot express.
type AccountResult = gethclient.AccountResult

// GetProof calls eth_getProof for an account and an optional storage key set.
func (f *Facade) GetProof(ctx context.Context, addr common.Address, keys []common.Hash, tag BlockTag) (*AccountResult, error) {
	hexKeys := make([]string, len(keys))
	for i, k := range keys {
		hexKeys[i] = k.Hex()
	}
	var res AccountResult
	if err := f.rpc.CallContext(ctx, &res, "eth_getProof", addr, hexKeys, tag.rpcParam()); err != nil {
		return nil, errs.Wrap(errs.RPC, err, "eth_getProof", "address", addr, "keys", len(keys), "block", tag)
	}
	return &res, nil
}

// KeyPage is one page returned by parity_listStorageKeys: up to N keys in
// trie pre-order, plus the opaque cursor (spec.md §3: Key page).
type KeyPage struct {
	Keys   []common.Hash
	Cursor *common.Hash
}

// ListStorageKeys calls the Parity extension parity_listStorageKeys(address,
// count, offset). offset == nil starts from the smallest key; otherwise the
// page starts strictly after *offset (spec.md §6).
func (f *Facade) ListStorageKeys(ctx context.Context, addr common.Address, count int, offset *common.Hash, tag BlockTag) (KeyPage, error) {
	var offsetArg interface{}
	if offset != nil {
		offsetArg = offset.Hex()
	}
	var raw []string
	err := f.rpc.CallContext(ctx, &raw, "parity_listStorageKeys", addr, count, offsetArg, tag.rpcParam())
	if err != nil {
		return KeyPage{}, errs.Wrap(errs.RPC, err, "parity_listStorageKeys", "address", addr, "count", count)
	}
	keys := make([]common.Hash, len(raw))
	for i, k := range raw {
		keys[i] = common.HexToHash(k)
	}
	var cursor *common.Hash
	if len(keys) > 0 {
		c := keys[len(keys)-1]
		cursor = &c
	}
	return KeyPage{Keys: keys, Cursor: cursor}, nil
}

// StorageDiffEntry is one polymorphic entry of trace_replayTransaction's
// stateDiff.storage object: either {"*": {from,to}} (modification),
// {"+": value} (creation), or "=" (no change).
type StorageDiffEntry struct {
	raw json.RawMessage
}

// AccountStateDiff is the per-account slice of a stateDiff result that the
// engine consumes: only the storage map matters to the srcTx strategy.
type AccountStateDiff struct {
	Storage map[common.Hash]StorageDiffEntry `json:"storage"`
}

// TraceReplayResult is the subset of trace_replayTransaction's response the
// engine parses.
type TraceReplayResult struct {
	StateDiff map[common.Address]AccountStateDiff `json:"stateDiff"`
}

// TraceReplayTransaction calls trace_replayTransaction(hash, ["stateDiff"]).
func (f *Facade) TraceReplayTransaction(ctx context.Context, hash common.Hash) (*TraceReplayResult, error) {
	var res TraceReplayResult
	err := f.rpc.CallContext(ctx, &res, "trace_replayTransaction", hash, []string{"stateDiff"})
	if err != nil {
		return nil, errs.Wrap(errs.RPC, err, "trace_replayTransaction", "hash", hash)
	}
	return &res, nil
}

// Kind classifies a StorageDiffEntry's shape.
type Kind int

const (
	// KindUnchanged is the "=" form: the slot was untouched by this tx.
	KindUnchanged Kind = iota
	// KindModified is the {"*": {from,to}} form.
	KindModified
	// KindCreated is the {"+": value} form.
	KindCreated
)

// Decode inspects a StorageDiffEntry and returns its kind and, for
// Modified/Created, the resulting value (spec.md §4.C: "use `to`" /
// "use `value`").
func (e StorageDiffEntry) Decode() (Kind, common.Hash, error) {
	kind, _, to, err := e.DecodeFull()
	return kind, to, err
}

// DecodeFull additionally exposes the pre-modification value for the
// {"*": {from,to}} form (zero for the {"+": value} and "=" forms).
func (e StorageDiffEntry) DecodeFull() (Kind, common.Hash, common.Hash, error) {
	if len(e.raw) == 0 || string(e.raw) == `"="` {
		return KindUnchanged, common.Hash{}, common.Hash{}, nil
	}
	var modified struct {
		Star *struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"*"`
		Plus *string `json:"+"`
	}
	if err := json.Unmarshal(e.raw, &modified); err != nil {
		return KindUnchanged, common.Hash{}, common.Hash{}, fmt.Errorf("decode storage diff entry: %w", err)
	}
	switch {
	case modified.Star != nil:
		return KindModified, common.HexToHash(modified.Star.From), common.HexToHash(modified.Star.To), nil
	case modified.Plus != nil:
		return KindCreated, common.Hash{}, common.HexToHash(*modified.Plus), nil
	default:
		return KindUnchanged, common.Hash{}, common.Hash{}, nil
	}
}

// UnmarshalJSON captures the raw polymorphic entry for later Decode.
func (e *StorageDiffEntry) UnmarshalJSON(b []byte) error {
	e.raw = append([]byte(nil), b...)
	return nil
}

// SendRawTransaction calls eth_sendRawTransaction with an already-signed
// transaction and waits for neither a receipt nor confirmation; callers
// that need a receipt call TransactionReceipt separately.
func (f *Facade) SendRawTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := f.eth.SendTransaction(ctx, tx); err != nil {
		return errs.Wrap(errs.RPC, err, "eth_sendRawTransaction", "hash", tx.Hash())
	}
	return nil
}

// SuggestGasPrice calls eth_gasPrice for a suggested legacy gas price.
func (f *Facade) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := f.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.RPC, err, "eth_gasPrice")
	}
	return price, nil
}

// PendingNonceAt fetches the next nonce for a transactor.
func (f *Facade) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	n, err := f.eth.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, errs.Wrap(errs.RPC, err, "eth_getTransactionCount", "address", addr)
	}
	return n, nil
}

// ChainID fetches the target chain's EIP-155 chain ID, used to build a
// keystore transactor (spec.md §9: "Dynamic config object").
func (f *Facade) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := f.eth.ChainID(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.RPC, err, "eth_chainId")
	}
	return id, nil
}

// CallContract exposes a raw eth_call. The block is taken from tag.Number,
// so a sentinel tag is sent as "latest".
func (f *Facade) CallContract(ctx context.Context, msg ContractCallMsg, tag BlockTag) ([]byte, error) {
	out, err := f.eth.CallContract(ctx, msg.toEth(), tag.Number)
	if err != nil {
		return nil, errs.Wrap(errs.RPC, err, "eth_call", "to", msg.To)
	}
	return out, nil
}

// EthClient exposes the underlying typed client for components (such as
// internal/contracts) that need a bind.ContractBackend; it is the single
// sanctioned escape hatch from the facade's narrow surface.
func (f *Facade) EthClient() *ethclient.Client { return f.eth }

// RPCClient exposes the underlying raw client for components (such as
// internal/config's node-unlocked-account signer) that need to call a
// JSON-RPC method the typed surfaces above don't cover.
func (f *Facade) RPCClient() *rpc.Client { return f.rpc }

func (f *Facade) Logger() log.Logger { return log.New("node", f.label) }
