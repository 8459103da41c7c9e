package processor

import (
	"context"
	"errors"
	"fmt"

	"sahara/internal/config"
	"sahara/internal/evm"
	"sahara/internal/executor"
	"sahara/internal/keyloader"
	"sahara/internal/logger"
	"sahara/internal/retry"
	"sahara/internal/selector"
	"sahara/internal/storage"
	"sahara/internal/tasks"
)

// Env holds the collaborators shared by every wallet processor in a run.
type Env struct {
	Cfg      *config.Config
	Store    storage.Store
	Registry *tasks.Registry
	TaskDeps tasks.Deps
	Log      logger.Logger
}

// Processor encapsulates the logic for processing a single wallet.
type Processor struct {
	env              Env
	signer           *evm.Signer
	walletIndex      int
	currentWalletNum int
	totalWalletsNum  int
	taskSelector     *selector.Selector
	taskExecutor     *executor.Executor
	log              logger.Logger
}

// NewProcessor creates a new Processor instance.
func NewProcessor(env Env, key *keyloader.LoadedKey, originalIndex, currentNum, totalNum int) *Processor {
	return &Processor{
		env:              env,
		signer:           evm.NewSigner(key.PrivateKey),
		walletIndex:      originalIndex,
		currentWalletNum: currentNum,
		totalWalletsNum:  totalNum,
		taskSelector:     selector.NewSelector(env.Cfg, env.Log),
		taskExecutor:     executor.NewExecutor(env.Cfg, env.Log),
		log:              env.Log,
	}
}

// Process selects tasks for the wallet and runs them one after another.
// A fatal error stops the wallet; other failures are recorded and the next task runs.
// The first failure is returned.
func (p *Processor) Process(ctx context.Context) error {
	walletProgress := fmt.Sprintf("%d/%d", p.currentWalletNum, p.totalWalletsNum)
	addr := p.signer.Address().Hex()
	p.log.InfoWithBlankLine("-------------------- Начало обработки кошелька --------------------",
		"wallet", walletProgress, "origIdx", p.walletIndex, "addr", addr)

	selectedTasks, err := p.taskSelector.SelectTasks()
	if err != nil {
		if errors.Is(err, selector.ErrNoValidTasksSelected) {
			p.log.Warn("Для кошелька не выбрано ни одной задачи, пропускаем",
				"wallet", walletProgress, "addr", addr)
		} else {
			p.log.Error("Ошибка выбора задач для кошелька, пропускаем",
				"err", err, "wallet", walletProgress, "addr", addr)
		}
		return err
	}

	totalTasks := len(selectedTasks)
	p.log.Info("Задачи для выполнения", "count", totalTasks, "order", p.env.Cfg.Actions.TaskOrder,
		"wallet", walletProgress, "addr", addr)

	var finalError error
	for taskIndex, taskEntry := range selectedTasks {
		taskProgress := fmt.Sprintf("%d/%d", taskIndex+1, totalTasks)
		if err := ctx.Err(); err != nil {
			p.log.Warn("Обработка прервана (контекст отменен перед задачей)",
				"task", taskEntry.Name, "taskNum", taskProgress, "wallet", walletProgress, "addr", addr)
			return err
		}

		p.log.InfoWithBlankLine("------ Начало задачи ------", "taskNum", taskProgress,
			"task", taskEntry.Name, "net", taskEntry.Network, "wallet", walletProgress, "addr", addr)

		taskErr := p.runTask(ctx, taskEntry, walletProgress)
		if taskErr != nil && finalError == nil {
			finalError = taskErr
		}
		if taskErr != nil && retry.Classify(taskErr) == retry.Fatal {
			p.log.Error("Критическая ошибка, остальные задачи кошелька пропущены",
				"task", taskEntry.Name, "err", taskErr, "wallet", walletProgress, "addr", addr)
			return taskErr
		}

		if taskIndex < totalTasks-1 {
			if err := p.performInterTaskDelay(ctx, walletProgress); err != nil {
				return err
			}
		}
	}

	status := "Success"
	if finalError != nil {
		status = "Failed"
	}
	p.log.InfoWithBlankLine("-------------------- Конец обработки кошелька ---------------------",
		"wallet", walletProgress, "addr", addr, "status", status)

	return finalError
}
