package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sahara/internal/config"
	"sahara/internal/evm"
	"sahara/internal/retry"
	"sahara/internal/sahara"
	"sahara/internal/storage"
	"sahara/internal/types"
	"sahara/internal/utils"
)

// ErrSaharaClientMissing is returned when the daily task runs without an API client.
var ErrSaharaClientMissing = errors.New("sahara api client is not configured")

// DailyTask claims the Sahara Legends daily tasks, sends the daily self transaction
// and then claims the transaction task.
// Params: min_percent, max_percent for the self transaction (defaults 10 and 90).
type DailyTask struct {
	deps Deps
	// retryDelay separates claim attempts, settleDelay lets the backend index the daily tx.
	retryDelay  config.DelayRange
	settleDelay config.DelayRange
}

var _ Keyed = (*DailyTask)(nil)

// NewDailyTask is the constructor for DailyTask.
func NewDailyTask(deps Deps) TaskRunner {
	return &DailyTask{
		deps:        deps,
		retryDelay:  config.DelayRange{Min: 10, Max: 30, Unit: types.TimeUnitSeconds},
		settleDelay: config.DelayRange{Min: 30, Max: 60, Unit: types.TimeUnitSeconds},
	}
}

// CompletionKey makes the task run once per UTC day.
func (t *DailyTask) CompletionKey(now time.Time) string {
	return storage.DailyKey(types.TaskNameDaily, now)
}

// txStepKey marks that today's self transaction was already confirmed,
// so a retried run does not send it twice.
func (t *DailyTask) txStepKey() string {
	return t.CompletionKey(t.deps.Clock()) + ":tx"
}

// Run executes the daily flow.
func (t *DailyTask) Run(ctx context.Context, signer *evm.Signer, client evm.EVMClient, params map[string]interface{}) error {
	if t.deps.Sahara == nil {
		return ErrSaharaClientMissing
	}
	if client == nil {
		return ErrClientRequired
	}
	lo, hi, err := percentRange(params, 10, 90)
	if err != nil {
		return err
	}
	addr := signer.Address().Hex()
	cfg := t.deps.Cfg.Sahara

	sess, err := t.deps.Sahara.Login(ctx, signer)
	if err != nil {
		return fmt.Errorf("вход в sahara: %w", err)
	}

	for _, id := range cfg.DailyTaskIDs {
		if err := t.claim(ctx, sess, id, addr); err != nil {
			return err
		}
	}

	sentToday, err := t.deps.Store.IsTaskCompleted(ctx, addr, t.txStepKey())
	if err != nil {
		return fmt.Errorf("чтение состояния задачи: %w", err)
	}
	if sentToday {
		t.deps.Log.Info("Ежедневная транзакция уже отправлена сегодня", "addr", addr)
	} else {
		t.deps.Log.Info("Отправка ежедневной транзакции", "addr", addr)
		if _, err := sendSelfShare(ctx, t.deps, signer, client, lo, hi); err != nil {
			return err
		}
		if _, err := t.deps.Store.MarkTaskCompleted(ctx, addr, t.txStepKey()); err != nil {
			t.deps.Log.Error("Не удалось сохранить отметку о транзакции", "addr", addr, "err", err)
		}
		if err := utils.SleepRange(ctx, t.settleDelay); err != nil {
			return err
		}
	}

	return t.claim(ctx, sess, cfg.TxTaskID, addr)
}

// claim flushes and claims one task, up to ClaimAttempts times.
// A task that was claimed earlier counts as done.
func (t *DailyTask) claim(ctx context.Context, sess *sahara.Session, taskID, addr string) error {
	cfg := t.deps.Cfg.Sahara
	policy := retry.Policy{Attempts: cfg.ClaimAttempts, Delay: t.retryDelay}

	err := retry.Do(ctx, policy, func(attempt int) error {
		if err := sess.FlushTask(ctx, taskID); err != nil {
			return err
		}
		if err := utils.SleepRange(ctx, cfg.ClaimDelay); err != nil {
			return err
		}
		err := sess.ClaimTask(ctx, taskID)
		if err != nil && !errors.Is(err, retry.ErrAlreadyDone) {
			t.deps.Log.Error("Ошибка получения награды", "task_id", taskID, "attempt", attempt, "addr", addr, "err", err)
		}
		return err
	})
	switch {
	case err == nil:
		t.deps.Log.Success("Ежедневное задание выполнено", "task_id", taskID, "addr", addr)
		return nil
	case errors.Is(err, retry.ErrAlreadyDone):
		t.deps.Log.Info("Награда уже получена", "task_id", taskID, "addr", addr)
		return nil
	default:
		return fmt.Errorf("задание %s: %w", taskID, err)
	}
}
