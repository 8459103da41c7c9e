package main

import (
	"context"
	"fmt"
	"os"
	"time"

	saharaapp "sahara/internal/app"
	"sahara/internal/bootstrap"
	"sahara/internal/config"
	"sahara/internal/evm"
	"sahara/internal/keyloader"
	"sahara/internal/logger"
	"sahara/internal/notify"
	"sahara/internal/processor"
	"sahara/internal/sahara"
	"sahara/internal/sender"
	"sahara/internal/storage"
	"sahara/internal/tasks"
	"sahara/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli"
)

func runCommand(c *cli.Context) error {
	log := logger.NewColorLogger()
	ctx, cancel := withSignals(log)
	defer cancel()

	mode := types.RunMode(c.String("mode"))
	if mode != types.RunModeTasks && mode != types.RunModeSelfSender {
		return fmt.Errorf("неизвестный режим %q", mode)
	}

	cfg, err := loadConfig(c, log)
	if err != nil {
		return err
	}
	notifier, err := notify.FromConfig(cfg.Notifier, log)
	if err != nil {
		return err
	}
	wallets, err := loadWallets(c, log)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Ошибка закрытия хранилища", "error", err)
		}
	}()

	started := time.Now()
	var report notify.Report
	switch mode {
	case types.RunModeSelfSender:
		report, err = runSelfSender(ctx, cfg, wallets, store, log)
	default:
		report = runTasks(ctx, cfg, wallets, store, log)
	}
	report.Mode = string(mode)
	report.Duration = time.Since(started)

	sendCtx, sendCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer sendCancel()
	if sendErr := notifier.Send(sendCtx, report.Text()); sendErr != nil {
		log.Error("Не удалось отправить отчет", "error", sendErr)
	}

	log.Info("Работа завершена", "total", report.Total, "succeeded", report.Succeeded,
		"failed", report.Failed, "canceled", report.Canceled)
	return err
}

func runTasks(ctx context.Context, cfg *config.Config, wallets []*keyloader.LoadedKey, store storage.Store, log logger.Logger) notify.Report {
	registry := bootstrap.RegisterTasksFromConfig(cfg, tasks.Constructors(), log)
	env := processor.Env{
		Cfg:      cfg,
		Store:    store,
		Registry: registry,
		Log:      log,
		TaskDeps: tasks.Deps{
			Cfg:   cfg,
			Log:   log,
			Store: store,
			Sahara: sahara.NewClient(sahara.Options{
				BaseURL:           cfg.Sahara.APIURL,
				WalletName:        cfg.Sahara.WalletName,
				RequestsPerSecond: cfg.Sahara.RequestsPerSec,
			}, log),
			Clients: bootstrap.ClientFactory(cfg, log),
			Confirm: evm.DefaultConfirmPolicy,
		},
	}

	summary := saharaapp.NewApplication(env, wallets).Run(ctx)
	return notify.Report{
		Total:     summary.Total,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Canceled:  summary.Canceled,
		Failures:  summary.Failures,
	}
}

// runSelfSender pays every loaded wallet from the key in SELF_SENDER_PK.
func runSelfSender(ctx context.Context, cfg *config.Config, wallets []*keyloader.LoadedKey, store storage.Store, log logger.Logger) (notify.Report, error) {
	report := notify.Report{Total: len(wallets)}
	signer, err := evm.NewSignerFromHex(os.Getenv("SELF_SENDER_PK"))
	if err != nil {
		return report, fmt.Errorf("SELF_SENDER_PK: %w", err)
	}
	client, err := bootstrap.ClientFactory(cfg, log)(ctx, cfg.SelfSender.Network)
	if err != nil {
		return report, err
	}
	defer client.Close()

	recipients := make([]common.Address, len(wallets))
	for i, w := range wallets {
		recipients[i] = w.Address
	}
	sent, err := sender.New(cfg, client, signer, evm.DefaultConfirmPolicy, store, log).Run(ctx, recipients)
	report.Succeeded = sent
	if err != nil {
		rest := len(wallets) - sent
		if ctx.Err() != nil {
			report.Canceled = rest
		} else {
			report.Failed = rest
			report.Failures = map[string]string{signer.Address().Hex(): err.Error()}
		}
	}
	return report, err
}
