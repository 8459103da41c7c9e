package database

import (
	"context"
	"errors"
	"fmt"

	"sahara/internal/logger"
	"sahara/internal/storage"
	"sahara/internal/storage/memory"
	"sahara/internal/storage/noop"
	"sahara/internal/storage/postgres"
	"sahara/internal/storage/sqlite"
	"sahara/internal/types"
)

var (
	// ErrUnsupportedDBType indicates that the provided database type is not supported.
	ErrUnsupportedDBType = errors.New("unsupported database type specified")
	// ErrDBConnectionFailed indicates that the attempt to connect to the database failed.
	ErrDBConnectionFailed = errors.New("database connection failed")
	// ErrMissingConnectionString indicates that the database connection string was not provided.
	ErrMissingConnectionString = errors.New("database connection string is missing")
)

// NewStorage opens the configured backend and wraps it in the shared store mutex.
func NewStorage(ctx context.Context, log logger.Logger, dbType types.DBType, connStr, maxConnsStr string) (storage.Store, error) {
	var s storage.Store
	var err error

	switch dbType {
	case types.Postgres:
		if connStr == "" {
			return nil, fmt.Errorf("для PostgreSQL: %w", ErrMissingConnectionString)
		}
		s, err = postgres.NewStore(ctx, log, connStr, maxConnsStr)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w: %w", ErrDBConnectionFailed, err)
		}
	case types.SQLite:
		if connStr == "" {
			return nil, fmt.Errorf("для SQLite: %w", ErrMissingConnectionString)
		}
		s, err = sqlite.NewStore(ctx, log, connStr)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к SQLite: %w: %w", ErrDBConnectionFailed, err)
		}
	case types.Memory:
		log.Info("Хранилище задач в памяти, данные не переживут перезапуск.")
		s = memory.NewStore()
	case types.None, "":
		log.Info("Хранилище задач отключено, выполненные задачи не запоминаются.")
		s = noop.NewStore()
	default:
		return nil, fmt.Errorf("%w: %s (ожидается '%s', '%s', '%s' или '%s')",
			ErrUnsupportedDBType, dbType, types.Postgres, types.SQLite, types.Memory, types.None)
	}

	return storage.NewLocked(s), nil
}
