package diff

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/storagesync/storagesync/internal/errs"
	"github.com/storagesync/storagesync/internal/rpcclient"
)

// srcTxDiff implements spec.md §4.C's "srcTx strategy": replay every
// transaction between fromBlock and toBlock whose `to` is the contract or
// whose creation address is the contract, via trace_replayTransaction
// requesting stateDiff. Eliminates dependence on the Parity list-keys
// extension at the cost of replaying every block's transactions.
func (e *Engine) srcTxDiff(ctx context.Context, fromBlock, toBlock rpcclient.BlockTag) (Diff, error) {
	if fromBlock.Number == nil || toBlock.Number == nil {
		return nil, errs.New(errs.Config, "srcTx strategy requires concrete block numbers", "from", fromBlock, "to", toBlock)
	}
	logger := log.New("component", "diff", "strategy", "srcTx")

	type accum struct {
		srcValue    common.Hash
		targetValue common.Hash
		sawSrc      bool
	}
	touched := make(map[common.Hash]*accum)

	// Block N's transactions are fully collected before block N+1's, so the
	// emitted diff is reproducible regardless of RPC completion order
	// (spec.md §5).
	for bn := fromBlock.Number.Uint64() + 1; bn <= toBlock.Number.Uint64(); bn++ {
		block, err := e.Source.BlockByNumber(ctx, rpcclient.AtBlock(bn))
		if err != nil {
			return nil, err
		}
		relevant, err := relevantTransactions(ctx, e.Source, e.SourceAddress, block.Transactions())
		if err != nil {
			return nil, err
		}
		logger.Debug("scanned block", "block", bn, "relevantTxs", len(relevant))
		for _, tx := range relevant {
			res, err := e.Source.TraceReplayTransaction(ctx, tx.Hash())
			if err != nil {
				return nil, err
			}
			acct, ok := res.StateDiff[e.SourceAddress]
			if !ok {
				// Benign per spec.md §9, Open Questions: a to-matching tx
				// with no stateDiff entry for the contract contributes
				// nothing.
				continue
			}
			for key, entry := range acct.Storage {
				kind, from, to, err := entry.DecodeFull()
				if err != nil {
					return nil, err
				}
				if kind == rpcclient.KindUnchanged {
					continue
				}
				a, ok := touched[key]
				if !ok {
					a = &accum{}
					touched[key] = a
				}
				if !a.sawSrc {
					a.srcValue = from
					a.sawSrc = true
				}
				a.targetValue = to
			}
		}
	}

	out := make(Diff, 0, len(touched))
	for key, a := range touched {
		// Keys whose final value is all-zero across the window are still
		// emitted, with a zero target value, so the proxy can zero the
		// slot (spec.md §4.C).
		out = append(out, Entry{Key: key, SrcValue: a.srcValue, TargetValue: a.targetValue})
	}
	return sortByKey(out), nil
}

func relevantTransactions(ctx context.Context, f Facade, contract common.Address, txs types.Transactions) ([]*types.Transaction, error) {
	relevant := make([]*types.Transaction, 0)
	for _, tx := range txs {
		if to := tx.To(); to != nil {
			if *to == contract {
				relevant = append(relevant, tx)
			}
			continue
		}
		// Contract-creation transaction: the creation address is only
		// known from the receipt.
		receipt, err := f.TransactionReceipt(ctx, tx.Hash())
		if err != nil {
			return nil, err
		}
		if receipt.ContractAddress == contract {
			relevant = append(relevant, tx)
		}
	}
	return relevant, nil
}
