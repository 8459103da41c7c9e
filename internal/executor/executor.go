package executor

import (
	"context"
	"errors"

	"sahara/internal/config"
	"sahara/internal/evm"
	"sahara/internal/logger"
	"sahara/internal/retry"
	"sahara/internal/tasks"
	"sahara/internal/types"
	"sahara/internal/utils"
)

// Executor is responsible for executing a single task with retries logic.
type Executor struct {
	cfg    *config.Config
	log    logger.Logger
	policy retry.Policy
}

// NewExecutor creates a new Executor instance.
func NewExecutor(cfg *config.Config, log logger.Logger) *Executor {
	return &Executor{
		cfg:    cfg,
		log:    log,
		policy: retry.PolicyFromConfig(cfg.Delay.BetweenRetries),
	}
}

// ExecuteTaskWithRetries runs the task until it succeeds or retry.Classify stops it.
// A task that reports retry.ErrAlreadyDone is Skipped with a nil error.
func (e *Executor) ExecuteTaskWithRetries(
	ctx context.Context,
	signer *evm.Signer,
	client evm.EVMClient,
	taskEntry config.TaskConfigEntry,
	runner tasks.TaskRunner,
) (types.TxStatus, error) {
	walletAddress := signer.Address().Hex()

	taskErr := retry.Do(ctx, e.policy, func(attempt int) error {
		e.log.Debug("Попытка выполнения задачи", "task", taskEntry.Name,
			"attempt", attempt, "wallet", walletAddress)
		err := runner.Run(ctx, signer, client, taskEntry.Params)
		if err == nil {
			return nil
		}

		decision := retry.Classify(err)
		if decision == retry.Retry && attempt < e.policy.Attempts {
			e.log.Warn("Ошибка выполнения задачи, попытка повтора", "task", taskEntry.Name,
				"attempt", attempt, "maxAttempts", e.policy.Attempts,
				"err", err, "wallet", walletAddress)
		} else {
			e.log.Debug("Ошибка выполнения задачи", "task", taskEntry.Name,
				"decision", decision, "err", err, "wallet", walletAddress)
		}
		return err
	})

	switch {
	case taskErr == nil:
		e.log.SuccessWithBlankLine("Задача успешно выполнена", "task", taskEntry.Name, "wallet", walletAddress)
		return types.TxStatusSuccess, nil
	case errors.Is(taskErr, retry.ErrAlreadyDone):
		e.log.InfoWithBlankLine("Задача уже выполнена ранее, пропуск", "task", taskEntry.Name, "wallet", walletAddress)
		return types.TxStatusSkipped, nil
	}

	e.log.ErrorWithBlankLine("Задача не выполнена", "task", taskEntry.Name,
		"decision", retry.Classify(taskErr), "err", taskErr, "wallet", walletAddress)

	if retry.Classify(taskErr) != retry.Fatal {
		afterErrorDelay, delayErr := utils.RandomDuration(e.cfg.Delay.AfterError)
		if delayErr != nil {
			e.log.Error("Ошибка получения времени задержки после ошибки", "err", delayErr, "wallet", walletAddress)
		} else if afterErrorDelay > 0 {
			e.log.Info("Пауза после ошибки задачи", "duration", afterErrorDelay, "wallet", walletAddress)
			if err := utils.Sleep(ctx, afterErrorDelay); err != nil {
				e.log.Warn("Задержка после ошибки прервана (контекст отменен)",
					"task", taskEntry.Name, "wallet", walletAddress)
			}
		}
	}
	return types.TxStatusFailed, taskErr
}
