package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"sahara/internal/keyloader"

	"github.com/ethereum/go-ethereum/common"
)

// runProcessing determines the execution mode (sequential/parallel) and starts processing.
func (a *Application) runProcessing(ctx context.Context, keysToProcess []*keyloader.LoadedKey) {
	numWorkers := a.cfg.Concurrency.MaxParallelWallets
	if numWorkers <= 1 {
		a.log.Info("Используется последовательный режим.", "configured_value", a.cfg.Concurrency.MaxParallelWallets)
		a.runSequentially(ctx, keysToProcess)
		return
	}
	if numWorkers > len(keysToProcess) {
		numWorkers = len(keysToProcess)
		a.log.Info("Запрошено больше воркеров, чем ключей, используется количество ключей.",
			"requested", a.cfg.Concurrency.MaxParallelWallets, "using", numWorkers)
	}
	a.runParallel(ctx, keysToProcess, numWorkers)
}

// findOriginalIndex searches for the original index of a key by its address.
func (a *Application) findOriginalIndex(keyAddress common.Address) (int, error) {
	for oi, originalKey := range a.wallets {
		if originalKey.Address == keyAddress {
			return oi, nil
		}
	}
	return -1, fmt.Errorf("оригинальный индекс для адреса %s не найден", keyAddress.Hex())
}

// saveResumeIndex stores the index of the last completed wallet.
func (a *Application) saveResumeIndex(index int) {
	if !a.cfg.State.ResumeEnabled {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.env.Store.SetState(ctx, lastCompletedWalletKey, strconv.Itoa(index)); err != nil {
		a.log.Error("Ошибка сохранения состояния", "originalIndex", index, "error", err)
		return
	}
	a.log.Debug("Состояние сохранено", "key", lastCompletedWalletKey, "value", index)
}
