package main

import (
	"context"
	"fmt"

	"sahara/internal/logger"

	"github.com/urfave/cli"
)

// dbInit opens the store, which creates missing tables.
func dbInit(c *cli.Context) error {
	log := logger.NewColorLogger()
	cfg, err := loadConfig(c, log)
	if err != nil {
		return err
	}
	store, err := openStore(context.Background(), cfg, log)
	if err != nil {
		return err
	}
	log.Success("Хранилище готово", "db_type", cfg.Database.Type)
	return store.Close()
}

func dbList(c *cli.Context) error {
	log := logger.NewColorLogger()
	cfg, err := loadConfig(c, log)
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.ListCompletedTasks(ctx)
	if err != nil {
		return fmt.Errorf("чтение выполненных задач: %w", err)
	}
	for _, row := range rows {
		fmt.Printf("%s\t%s\t%s\n", row.WalletAddress, row.TaskKey, row.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	log.Info("Выполненных задач", "count", len(rows))
	return nil
}

func dbReset(c *cli.Context) error {
	log := logger.NewColorLogger()
	cfg, err := loadConfig(c, log)
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.ResetTasks(ctx, c.String("wallet"))
	if err != nil {
		return fmt.Errorf("сброс задач: %w", err)
	}
	log.Success("Записи удалены", "count", n, "wallet", c.String("wallet"))
	return nil
}
