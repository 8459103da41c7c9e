package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sahara/internal/evm"
	"sahara/internal/logger"
	"sahara/internal/utils"
)

// ErrClientRequired is returned by on-chain tasks configured with network "any".
var ErrClientRequired = errors.New("task requires an rpc network")

// LogBalanceTask is a simple task that logs the wallet's balance.
type LogBalanceTask struct {
	log logger.Logger
}

// NewLogBalanceTask is the constructor for LogBalanceTask.
func NewLogBalanceTask(deps Deps) TaskRunner {
	return &LogBalanceTask{log: deps.Log}
}

// Run executes the log balance task.
func (t *LogBalanceTask) Run(ctx context.Context, signer *evm.Signer, client evm.EVMClient, _ map[string]interface{}) error {
	if client == nil {
		return ErrClientRequired
	}
	addr := signer.Address().Hex()
	t.log.Info("Запуск задачи: log_balance", "addr", addr)

	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	balanceWei, err := client.GetBalance(callCtx, signer.Address())
	if err != nil {
		return fmt.Errorf("ошибка получения баланса: %w", err)
	}

	t.log.Success("Баланс получен", "addr", addr, "balance", utils.FromWei(balanceWei))
	return nil
}
