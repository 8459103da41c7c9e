package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sahara/internal/config"
	"sahara/internal/evm"
	"sahara/internal/storage"
	"sahara/internal/tasks"
	"sahara/internal/types"
	"sahara/internal/utils"
)

// errNoRPC is returned for a task whose network has no rpc_nodes entry.
var errNoRPC = errors.New("no rpc urls for network")

// getEvmClientForTask opens a client for the task network, or returns nil for network "any".
func (p *Processor) getEvmClientForTask(ctx context.Context, network string) (evm.EVMClient, error) {
	if network == "any" {
		p.log.Debug("Пропуск создания EVM клиента для сети 'any'")
		return nil, nil
	}
	if p.env.TaskDeps.Clients == nil {
		return nil, fmt.Errorf("%w %s", errNoRPC, network)
	}

	p.log.Debug("Создание EVM клиента", "net", network)
	client, err := p.env.TaskDeps.Clients(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания EVM клиента для сети %s: %w", network, err)
	}
	return client, nil
}

// runTask prepares, executes and records one task.
func (p *Processor) runTask(ctx context.Context, taskEntry config.TaskConfigEntry, walletProgress string) error {
	addr := p.signer.Address().Hex()
	record := storage.TransactionRecord{
		WalletAddress: addr,
		TaskName:      taskEntry.Name,
		Network:       taskEntry.Network,
	}

	deps := p.env.TaskDeps
	deps.Network = taskEntry.Network
	runner, err := p.env.Registry.New(taskEntry.Name, deps)
	if err != nil {
		p.log.Error("Не удалось создать runner задачи, пропуск", "task", taskEntry.Name, "err", err,
			"wallet", walletProgress, "addr", addr)
		record.Status = types.TxStatusErrorBeforeSend
		record.Error = err.Error()
		p.logRecord(record, walletProgress)
		return err
	}

	completionKey := ""
	if keyed, ok := runner.(tasks.Keyed); ok {
		completionKey = keyed.CompletionKey(p.env.TaskDeps.Clock())
		done, err := p.env.Store.IsTaskCompleted(ctx, addr, completionKey)
		if err != nil {
			p.log.Error("Не удалось проверить статус задачи в хранилище", "task", taskEntry.Name, "err", err,
				"wallet", walletProgress, "addr", addr)
		} else if done {
			p.log.Info("Задача уже выполнена, пропуск", "task", taskEntry.Name, "key", completionKey,
				"wallet", walletProgress, "addr", addr)
			record.Status = types.TxStatusSkipped
			p.logRecord(record, walletProgress)
			return nil
		}
	}

	client, err := p.getEvmClientForTask(ctx, taskEntry.Network)
	if err != nil {
		p.log.Error("Не удалось получить EVM клиент, пропуск задачи", "task", taskEntry.Name,
			"net", taskEntry.Network, "err", err, "wallet", walletProgress, "addr", addr)
		record.Status = types.TxStatusErrorBeforeSend
		record.Error = err.Error()
		p.logRecord(record, walletProgress)
		return err
	}

	status, execErr := p.taskExecutor.ExecuteTaskWithRetries(ctx, p.signer, client, taskEntry, runner)
	if client != nil {
		client.Close()
		p.log.Debug("EVM клиент закрыт", "task", taskEntry.Name, "net", taskEntry.Network, "wallet", walletProgress)
	}

	record.Status = status
	if execErr != nil {
		record.Error = execErr.Error()
	}
	if completionKey != "" && execErr == nil {
		if _, err := p.env.Store.MarkTaskCompleted(ctx, addr, completionKey); err != nil {
			p.log.Error("Не удалось отметить задачу выполненной", "task", taskEntry.Name, "err", err,
				"wallet", walletProgress, "addr", addr)
		}
	}
	p.logRecord(record, walletProgress)

	p.log.InfoWithBlankLine("------ Конец задачи ------", "task", taskEntry.Name,
		"wallet", walletProgress, "status", record.Status, "addr", addr)
	return execErr
}

// logRecord writes the record with its own timeout so a canceled run still leaves history.
func (p *Processor) logRecord(record storage.TransactionRecord, walletProgress string) {
	record.Timestamp = time.Now().Truncate(time.Second)
	logCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.env.Store.LogTransaction(logCtx, record); err != nil {
		p.log.Error("Не удалось записать лог транзакции в БД", "task", record.TaskName, "err", err,
			"wallet", walletProgress, "addr", record.WalletAddress)
	}
}

// performInterTaskDelay handles the delay between tasks.
func (p *Processor) performInterTaskDelay(ctx context.Context, walletProgress string) error {
	actionDelayDuration, delayErr := utils.RandomDuration(p.env.Cfg.Delay.BetweenActions)
	if delayErr != nil {
		p.log.Error("Ошибка получения времени задержки между задачами", "err", delayErr, "wallet", walletProgress)
		return nil
	}
	if actionDelayDuration <= 0 {
		return ctx.Err()
	}

	p.log.Info("Пауза перед следующей задачей", "duration", actionDelayDuration, "wallet", walletProgress)
	if err := utils.Sleep(ctx, actionDelayDuration); err != nil {
		p.log.Warn("Задержка между задачами прервана (контекст отменен)", "wallet", walletProgress)
		return err
	}
	return nil
}
