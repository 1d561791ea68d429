package migration

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/storagesync/storagesync/internal/errs"
)

// deployBytecode sends a bare contract-creation transaction carrying
// initcode verbatim, with no ABI constructor arguments — the shape the
// Bytecode Cloner's stub requires (spec.md §4.E, §4.F step 5: "Clone
// logic and deploy"). bind.BoundContract's DeployContract always packs
// constructor args via an ABI, which the cloned logic contract has none
// of, so the transaction is built and signed directly here instead.
func deployBytecode(ctx context.Context, signer *bind.TransactOpts, client *ethclient.Client, initcode []byte) (common.Address, *types.Transaction, error) {
	nonce, err := client.PendingNonceAt(ctx, signer.From)
	if err != nil {
		return common.Address{}, nil, errs.Wrap(errs.RPC, err, "fetch nonce for logic deployment", "from", signer.From)
	}
	gasPrice := signer.GasPrice
	if gasPrice == nil {
		gasPrice, err = client.SuggestGasPrice(ctx)
		if err != nil {
			return common.Address{}, nil, errs.Wrap(errs.RPC, err, "suggest gas price for logic deployment")
		}
	}
	gasLimit := signer.GasLimit
	if gasLimit == 0 {
		gasLimit, err = client.EstimateGas(ctx, ethereum.CallMsg{From: signer.From, Data: initcode})
		if err != nil {
			return common.Address{}, nil, errs.Wrap(errs.RPC, err, "estimate gas for logic deployment")
		}
	}

	tx := types.NewContractCreation(nonce, big.NewInt(0), gasLimit, gasPrice, initcode)
	signedTx, err := signer.Signer(signer.From, tx)
	if err != nil {
		return common.Address{}, nil, errs.Wrap(errs.Config, err, "sign logic deployment transaction")
	}
	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return common.Address{}, nil, errs.Wrap(errs.RPC, err, "send logic deployment transaction")
	}

	addr := crypto.CreateAddress(signer.From, nonce)
	return addr, signedTx, nil
}
