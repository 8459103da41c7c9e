package app

import (
	"context"
	"sync"

	"sahara/internal/keyloader"
)

// result is used in the channel for parallel processing results.
type result struct {
	key           *keyloader.LoadedKey
	originalIndex int
	err           error
}

// processWalletWorker runs one wallet and releases its semaphore slot.
func (a *Application) processWalletWorker(
	ctx context.Context,
	key *keyloader.LoadedKey,
	originalIndex, currentNum, totalNum int,
	resultsChan chan<- result,
	semaphore chan struct{},
	wg *sync.WaitGroup,
) {
	defer wg.Done()
	defer func() {
		semaphore <- struct{}{}
		a.log.Debug("Слот воркера освобожден.", "wIdx", originalIndex)
	}()

	var processErr error
	defer func() {
		resultsChan <- result{key: key, originalIndex: originalIndex, err: processErr}
	}()

	if err := ctx.Err(); err != nil {
		a.log.Warn("Обработка кошелька пропущена воркером (контекст отменен перед стартом)",
			"wIdx", originalIndex, "addr", key.Address.Hex())
		processErr = err
		return
	}

	a.log.Debug("Воркер начинает обработку кошелька.", "wIdx", originalIndex, "addr", key.Address.Hex())
	processErr = a.processWallet(ctx, key, originalIndex, currentNum, totalNum)
	if processErr != nil {
		a.log.Error("Обработка кошелька завершилась с ошибкой.", "wIdx", originalIndex, "err", processErr)
	}
}

// handleParallelResults drains results, fills the summary and keeps the resume index at the
// highest index below which every wallet has succeeded.
func (a *Application) handleParallelResults(resultsChan <-chan result, start int) {
	done := make(map[int]bool)
	next := start

	for res := range resultsChan {
		a.record(res.key, res.err)
		if res.err != nil {
			continue
		}
		done[res.originalIndex] = true
		advanced := false
		for done[next] {
			next++
			advanced = true
		}
		if advanced {
			a.saveResumeIndex(next - 1)
		}
	}
	a.log.Info("Все результаты обработки кошельков получены.")
}

// runParallel processes wallets with at most numWorkers in flight. Launches are spaced
// by delay.between_accounts. It returns after every launched worker has finished.
func (a *Application) runParallel(ctx context.Context, keysToProcess []*keyloader.LoadedKey, numWorkers int) {
	total := len(keysToProcess)
	a.log.Info("Запуск параллельной обработки кошельков", "count", total, "workers", numWorkers)

	semaphore := make(chan struct{}, numWorkers)
	for i := 0; i < numWorkers; i++ {
		semaphore <- struct{}{}
	}
	resultsChan := make(chan result, total)

	start := len(a.wallets)
	for _, key := range keysToProcess {
		if idx, err := a.findOriginalIndex(key.Address); err == nil && idx < start {
			start = idx
		}
	}

	var collector sync.WaitGroup
	collector.Add(1)
	go func() {
		defer collector.Done()
		a.handleParallelResults(resultsChan, start)
	}()

	var workers sync.WaitGroup
launch:
	for i, key := range keysToProcess {
		originalIndex, findErr := a.findOriginalIndex(key.Address)
		if findErr != nil {
			a.log.Error("Не удалось найти оригинальный индекс для ключа, пропускаем.",
				"address", key.Address.Hex(), "error", findErr)
			continue
		}

		select {
		case <-semaphore:
		case <-ctx.Done():
			a.log.Warn("Параллельная обработка прервана (контекст отменен) во время ожидания слота воркера.",
				"lastAttemptedOriginalIndex", originalIndex)
			break launch
		}

		workers.Add(1)
		go a.processWalletWorker(ctx, key, originalIndex, i+1, total, resultsChan, semaphore, &workers)

		if i < total-1 {
			if err := a.pauseBetweenWallets(ctx, originalIndex); err != nil {
				break launch
			}
		}
	}

	a.log.Info("Цикл запуска воркеров завершен. Ожидание завершения активных воркеров...")
	workers.Wait()
	close(resultsChan)
	collector.Wait()
}
