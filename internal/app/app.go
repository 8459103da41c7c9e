package app

import (
	"context"
	"errors"
	"sync"

	"sahara/internal/config"
	"sahara/internal/keyloader"
	"sahara/internal/logger"
	"sahara/internal/processor"
)

const lastCompletedWalletKey = "last_completed_wallet_index"

// WalletFunc processes one wallet. currentNum and totalNum are its position in this run.
type WalletFunc func(ctx context.Context, key *keyloader.LoadedKey, originalIndex, currentNum, totalNum int) error

// Summary counts wallet outcomes of one run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Canceled  int
	// Failures maps a wallet address to its first error.
	Failures map[string]string
}

// Application holds the core application logic and dependencies.
type Application struct {
	cfg     *config.Config
	env     processor.Env
	wallets []*keyloader.LoadedKey
	log     logger.Logger

	processWallet WalletFunc

	mu      sync.Mutex
	summary Summary
}

// NewApplication creates a new Application instance.
func NewApplication(env processor.Env, wallets []*keyloader.LoadedKey) *Application {
	a := &Application{
		cfg:     env.Cfg,
		env:     env,
		wallets: wallets,
		log:     env.Log,
	}
	a.processWallet = a.runProcessor
	return a
}

// Run processes the wallets sequentially or with a bounded worker pool and
// returns once every started wallet has finished.
func (a *Application) Run(ctx context.Context) Summary {
	keysToProcess, err := a.prepareWalletsToProcess(ctx)
	if err != nil {
		a.log.Error("Не удалось подготовить список кошельков", "error", err)
		return a.snapshot()
	}
	if len(keysToProcess) == 0 {
		a.log.Info("Нет кошельков для обработки в этом сеансе.")
		return a.snapshot()
	}

	a.runProcessing(ctx, keysToProcess)
	a.log.Info("Завершение основного потока Application.Run.")
	return a.snapshot()
}

func (a *Application) runProcessor(ctx context.Context, key *keyloader.LoadedKey, originalIndex, currentNum, totalNum int) error {
	return processor.NewProcessor(a.env, key, originalIndex, currentNum, totalNum).Process(ctx)
}

// record adds one wallet outcome to the summary.
func (a *Application) record(key *keyloader.LoadedKey, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.summary.Total++
	switch {
	case err == nil:
		a.summary.Succeeded++
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		a.summary.Canceled++
	default:
		a.summary.Failed++
		if a.summary.Failures == nil {
			a.summary.Failures = make(map[string]string)
		}
		a.summary.Failures[key.Address.Hex()] = err.Error()
	}
}

func (a *Application) snapshot() Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.summary
	if a.summary.Failures != nil {
		s.Failures = make(map[string]string, len(a.summary.Failures))
		for k, v := range a.summary.Failures {
			s.Failures[k] = v
		}
	}
	return s
}
