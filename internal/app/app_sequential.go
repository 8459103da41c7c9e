package app

import (
	"context"
	"errors"
	"fmt"

	"sahara/internal/keyloader"
	"sahara/internal/utils"
)

// runSequentially processes wallets one by one in the calling goroutine.
// A failed wallet is recorded and the run moves on; cancellation stops it.
func (a *Application) runSequentially(ctx context.Context, keysToProcess []*keyloader.LoadedKey) {
	total := len(keysToProcess)
	a.log.Info("Запуск последовательной обработки кошельков", "count", total)

	for i, key := range keysToProcess {
		originalIndex, findErr := a.findOriginalIndex(key.Address)
		if findErr != nil {
			a.log.Error("Не удалось найти оригинальный индекс для ключа, пропускаем.",
				"address", key.Address.Hex(), "error", findErr)
			continue
		}
		if ctx.Err() != nil {
			a.log.Warn("Последовательная обработка прервана (контекст отменен).", "walletIndex", originalIndex)
			return
		}

		a.log.Debug("Начало обработки кошелька", "origIdx", originalIndex,
			"num", fmt.Sprintf("%d/%d", i+1, total), "addr", key.Address.Hex())
		err := a.processWallet(ctx, key, originalIndex, i+1, total)
		a.record(key, err)

		switch {
		case err == nil:
			a.saveResumeIndex(originalIndex)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			a.log.Warn("Обработка кошелька прервана контекстом.", "originalIndex", originalIndex, "error", err)
			return
		default:
			a.log.Error("Ошибка обработки кошелька.", "originalIndex", originalIndex, "error", err)
		}

		if i < total-1 {
			if err := a.pauseBetweenWallets(ctx, originalIndex); err != nil {
				return
			}
		}
	}
	a.log.Info("Последовательная обработка всех кошельков завершена.")
}

// pauseBetweenWallets sleeps for delay.between_accounts.
func (a *Application) pauseBetweenWallets(ctx context.Context, originalIndex int) error {
	delay, err := utils.RandomDuration(a.cfg.Delay.BetweenAccounts)
	if err != nil {
		a.log.Error("Ошибка получения времени задержки между кошельками", "err", err)
		return nil
	}
	if delay <= 0 {
		return ctx.Err()
	}
	a.log.Info("Пауза перед следующим кошельком", "wIdx", originalIndex, "duration", delay)
	if err := utils.Sleep(ctx, delay); err != nil {
		a.log.Warn("Задержка между кошельками прервана (контекст отменен)")
		return err
	}
	return nil
}
