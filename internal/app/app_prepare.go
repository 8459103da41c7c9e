package app

import (
	"context"
	"errors"
	"math/rand"
	"strconv"

	"sahara/internal/keyloader"
	"sahara/internal/storage"
	"sahara/internal/types"
)

// prepareWalletsToProcess determines the list of wallets to process based on resume state and shuffling.
func (a *Application) prepareWalletsToProcess(ctx context.Context) ([]*keyloader.LoadedKey, error) {
	processedWallets := append([]*keyloader.LoadedKey(nil), a.wallets...)
	lastCompletedIndex := -1
	shouldShuffle := a.cfg.Wallets.ProcessOrder == types.OrderRandom

	if a.cfg.State.ResumeEnabled {
		a.log.Info("Проверка состояния для возобновления...")
		stateValue, err := a.env.Store.GetState(ctx, lastCompletedWalletKey)
		switch {
		case errors.Is(err, storage.ErrStateNotFound):
			a.log.Info("Сохраненное состояние не найдено, начинаем с начала.")
		case err != nil:
			a.log.Error("Ошибка чтения состояния из хранилища, начинаем с начала.", "error", err)
		default:
			index, convErr := strconv.Atoi(stateValue)
			if convErr != nil {
				a.log.Error("Ошибка конвертации сохраненного индекса, начинаем с начала.",
					"value", stateValue, "error", convErr)
			} else {
				lastCompletedIndex = index
				a.log.Info("Обнаружено сохраненное состояние.", "last_completed_wallet_index", lastCompletedIndex)
			}
		}

		if lastCompletedIndex >= 0 {
			startIndex := lastCompletedIndex + 1
			if startIndex < len(a.wallets) {
				processedWallets = processedWallets[startIndex:]
				a.log.Info("Возобновление работы.", "start_index", startIndex,
					"wallets_to_process", len(processedWallets), "wallets_skipped", startIndex)
			} else {
				processedWallets = nil
				a.log.Info("Все кошельки уже были обработаны в предыдущем сеансе.")
			}
			if shouldShuffle {
				a.log.Warn("Возобновление состояния включено, process_order: random будет проигнорирован.")
				shouldShuffle = false
			}
		}
	} else {
		a.log.Info("Возобновление состояния отключено.")
	}

	if shouldShuffle && len(processedWallets) > 1 {
		a.log.Info("Перемешивание порядка кошельков...", "count", len(processedWallets))
		rand.Shuffle(len(processedWallets), func(i, j int) {
			processedWallets[i], processedWallets[j] = processedWallets[j], processedWallets[i]
		})
	}

	return processedWallets, nil
}
