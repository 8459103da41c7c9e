package bootstrap

import (
	"context"
	"fmt"

	"sahara/internal/config"
	"sahara/internal/evm"
	"sahara/internal/logger"
	"sahara/internal/tasks"
	"sahara/internal/types"
)

// RegisterTasksFromConfig builds a registry holding the constructors of enabled tasks.
// Enabled entries with an unknown name are logged and left out.
func RegisterTasksFromConfig(cfg *config.Config, known map[types.TaskName]tasks.TaskConstructor, log logger.Logger) *tasks.Registry {
	log.Info("Регистрация задач из конфигурации...")
	registry := tasks.NewRegistry()
	for _, taskCfg := range cfg.Tasks {
		if !taskCfg.Enabled {
			continue
		}
		constructor, ok := known[taskCfg.Name]
		if !ok {
			log.Warn("Задача из config.yml включена, но не найдена среди известных конструкторов", "task", taskCfg.Name)
			continue
		}
		// the same task may be listed for several networks
		_ = registry.Register(taskCfg.Name, constructor)
	}
	log.Info("Задачи, зарегистрированные для выполнения", "count", len(registry.Names()), "tasks", registry.Names())
	return registry
}

// ClientFactory opens clients from cfg.RPCNodes.
func ClientFactory(cfg *config.Config, log logger.Logger) tasks.ClientFactory {
	return func(ctx context.Context, network string) (evm.EVMClient, error) {
		urls, ok := cfg.RPCNodes[network]
		if !ok || len(urls) == 0 {
			return nil, fmt.Errorf("%w: %s", evm.ErrNoRpcUrlsProvided, network)
		}
		return evm.NewClient(ctx, log, urls)
	}
}
