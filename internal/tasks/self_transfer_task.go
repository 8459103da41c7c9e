package tasks

import (
	"context"
	"fmt"

	"sahara/internal/evm"
	"sahara/internal/retry"
	"sahara/internal/utils"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// SelfTransferTask sends a random share of the native balance from the wallet to itself.
// Params: min_percent, max_percent (defaults 10 and 90).
type SelfTransferTask struct {
	deps Deps
}

// NewSelfTransferTask is the constructor for SelfTransferTask.
func NewSelfTransferTask(deps Deps) TaskRunner {
	return &SelfTransferTask{deps: deps}
}

// Run executes the self transfer.
func (t *SelfTransferTask) Run(ctx context.Context, signer *evm.Signer, client evm.EVMClient, params map[string]interface{}) error {
	if client == nil {
		return ErrClientRequired
	}
	lo, hi, err := percentRange(params, 10, 90)
	if err != nil {
		return err
	}
	_, err = sendSelfShare(ctx, t.deps, signer, client, lo, hi)
	return err
}

// sendSelfShare picks a percent in [lo, hi] and sends that share of the balance to the wallet itself.
func sendSelfShare(ctx context.Context, deps Deps, signer *evm.Signer, client evm.EVMClient, lo, hi int) (*ethtypes.Receipt, error) {
	addr := signer.Address()
	balance, err := client.GetBalance(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	if balance.Sign() == 0 {
		return nil, fmt.Errorf("%w: нулевой баланс", retry.ErrInsufficientBalance)
	}

	percent := utils.RandomIntInRange(lo, hi)
	value := utils.MulPercent(balance, int64(percent))

	deps.Log.Info("Отправка самому себе", "addr", addr.Hex(), "amount", utils.FromWei(value), "percent", percent)
	receipt, err := evm.NewTransactor(client, signer, deps.Confirm, deps.Log).Send(ctx, evm.TxRequest{
		To:    addr,
		Value: value,
	})
	if err != nil {
		return nil, fmt.Errorf("self transfer: %w", err)
	}
	deps.Log.Success("Транзакция подтверждена", "addr", addr.Hex(), "tx", deps.txLink(receipt.TxHash.Hex()))
	return receipt, nil
}
