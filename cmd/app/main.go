package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sahara/internal/config"
	"sahara/internal/keyloader"
	"sahara/internal/logger"
	"sahara/internal/platform/database"
	"sahara/internal/storage"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"
)

var app = cli.NewApp()

func init() {
	app.Name = "sahara"
	app.Usage = "Sahara Legends daily tasks over many wallets"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "config/config.yml",
			Usage: "path to the configuration file",
		},
		cli.StringFlag{
			Name:  "wallets, w",
			Value: "local/data/private_keys.txt",
			Usage: "path to the private keys file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "process every wallet",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "mode, m",
					Value: "tasks",
					Usage: "tasks | self_sender",
				},
			},
			Action: runCommand,
		},
		{
			Name:  "db",
			Usage: "inspect the task store",
			Subcommands: []cli.Command{
				{Name: "init", Usage: "create the tables", Action: dbInit},
				{Name: "list", Usage: "list completed tasks", Action: dbList},
				{
					Name:  "reset",
					Usage: "forget completed tasks",
					Flags: []cli.Flag{
						cli.StringFlag{Name: "wallet", Usage: "only this wallet address"},
					},
					Action: dbReset,
				},
			},
		},
	}
}

func main() {
	_ = godotenv.Load()

	log := logger.NewColorLogger()
	defer func() {
		if r := recover(); r != nil {
			log.Fatal("Критическая ошибка (panic)", "error", r)
		}
	}()

	if err := app.Run(os.Args); err != nil {
		log.Error("Завершение с ошибкой", "error", err)
		os.Exit(1)
	}
}

// withSignals returns a context canceled on SIGINT or SIGTERM.
func withSignals(log logger.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-signalChan:
			log.Warn("Получен сигнал завершения, инициируется плавная остановка...", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signalChan)
	}()
	return ctx, cancel
}

func loadConfig(c *cli.Context, log logger.Logger) (*config.Config, error) {
	path := c.GlobalString("config")
	log.Info("Загрузка конфигурации...", "path", path)
	cfg, err := config.LoadConfig(path)
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		return nil, fmt.Errorf("файл конфигурации не найден: %w", err)
	case errors.Is(err, config.ErrConfigParseFailed):
		return nil, fmt.Errorf("ошибка парсинга файла конфигурации (проверьте YAML синтаксис): %w", err)
	case err != nil:
		return nil, err
	}
	return cfg, nil
}

// openStore opens the configured store. DB_CONNECTION_STRING fills an empty connection_string.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (storage.Store, error) {
	connStr := cfg.Database.ConnectionString
	if connStr == "" {
		connStr = os.Getenv("DB_CONNECTION_STRING")
	}
	store, err := database.NewStorage(ctx, log, cfg.Database.Type, connStr, cfg.Database.PoolMaxConns)
	if err != nil {
		return nil, fmt.Errorf("хранилище %s: %w", cfg.Database.Type, err)
	}
	return store, nil
}

func loadWallets(c *cli.Context, log logger.Logger) ([]*keyloader.LoadedKey, error) {
	path := c.GlobalString("wallets")
	log.Info("Загрузка кошельков...", "path", path)
	keys, err := keyloader.LoadKeys(path, log)
	if err != nil {
		return nil, err
	}
	log.Info("Кошельки успешно загружены", "count", len(keys))
	return keys, nil
}
