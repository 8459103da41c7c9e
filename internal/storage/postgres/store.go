package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sahara/internal/logger"
	"sahara/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// store implements storage.Store using PostgreSQL.
type store struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

const createTxTableSQL = `
CREATE TABLE IF NOT EXISTS transactions (
    id SERIAL PRIMARY KEY,
    timestamp TIMESTAMP NOT NULL,
    wallet_address VARCHAR(42) NOT NULL,
    task_name VARCHAR(255) NOT NULL,
    network VARCHAR(255) NOT NULL,
    tx_hash VARCHAR(66),
    status VARCHAR(50) NOT NULL,
    error_message TEXT
);`

const createStateTableSQL = `
CREATE TABLE IF NOT EXISTS application_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

const createCompletedTasksTableSQL = `
CREATE TABLE IF NOT EXISTS completed_tasks (
	wallet_address VARCHAR(42) NOT NULL,
	task_key VARCHAR(255) NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (wallet_address, task_key)
);`

// NewStore connects to PostgreSQL and prepares the tables.
func NewStore(ctx context.Context, log logger.Logger, connectionString string, maxConnsStr string) (storage.Store, error) {
	config, err := pgxpool.ParseConfig(connectionString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	if maxConnsStr != "" {
		maxConns, convErr := strconv.Atoi(maxConnsStr)
		if convErr != nil {
			log.Warn("Неверное значение pool_max_conns, используется значение по умолчанию", "value", maxConnsStr, "error", convErr)
		} else if maxConns > 0 {
			config.MaxConns = int32(maxConns)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	defer func() {
		if err != nil {
			pool.Close()
		}
	}()

	if err = pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	for _, ddl := range []string{createTxTableSQL, createStateTableSQL, createCompletedTasksTableSQL} {
		if _, err = pool.Exec(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	log.Success("Подключено к PostgreSQL", "max_conns", config.MaxConns)
	return &store{pool: pool, log: log}, nil
}

// LogTransaction saves a transaction record to the 'transactions' table.
func (s *store) LogTransaction(ctx context.Context, record storage.TransactionRecord) error {
	query := `INSERT INTO transactions (timestamp, wallet_address, task_name, network, tx_hash, status, error_message) 
	           VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		record.Timestamp,
		record.WalletAddress,
		string(record.TaskName),
		record.Network,
		record.TxHash,
		string(record.Status),
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to execute insert query: %w", err)
	}
	return nil
}

// GetState retrieves a value from the application_state table.
func (s *store) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM application_state WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrStateNotFound
		}
		return "", fmt.Errorf("failed to query state for key '%s': %w", key, err)
	}
	return value, nil
}

// SetState saves or updates a key-value pair in the application_state table.
func (s *store) SetState(ctx context.Context, key, value string) error {
	query := `INSERT INTO application_state (key, value)
	           VALUES ($1, $2)
	           ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set state for key '%s': %w", key, err)
	}
	return nil
}

// MarkTaskCompleted inserts a completed_tasks row unless one exists.
func (s *store) MarkTaskCompleted(ctx context.Context, wallet, taskKey string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO completed_tasks (wallet_address, task_key, completed_at) VALUES ($1, $2, $3)
		 ON CONFLICT (wallet_address, task_key) DO NOTHING`,
		strings.ToLower(wallet), taskKey, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to mark task %s for %s: %w", taskKey, wallet, err)
	}
	return tag.RowsAffected() > 0, nil
}

// IsTaskCompleted reports whether a row exists for the wallet and task key.
func (s *store) IsTaskCompleted(ctx context.Context, wallet, taskKey string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM completed_tasks WHERE wallet_address = $1 AND task_key = $2)`,
		strings.ToLower(wallet), taskKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query task %s for %s: %w", taskKey, wallet, err)
	}
	return exists, nil
}

// ListCompletedTasks returns every row ordered by wallet and time.
func (s *store) ListCompletedTasks(ctx context.Context) ([]storage.CompletedTask, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT wallet_address, task_key, completed_at FROM completed_tasks ORDER BY wallet_address, completed_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed tasks: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.CompletedTask, error) {
		var t storage.CompletedTask
		err := row.Scan(&t.WalletAddress, &t.TaskKey, &t.CompletedAt)
		return t, err
	})
}

// ResetTasks deletes completed_tasks rows for one wallet or for all of them.
func (s *store) ResetTasks(ctx context.Context, wallet string) (int64, error) {
	query := `DELETE FROM completed_tasks`
	args := []any{}
	if wallet != "" {
		query += ` WHERE wallet_address = $1`
		args = append(args, strings.ToLower(wallet))
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reset completed tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close closes the database connection pool.
func (s *store) Close() error {
	s.log.Debug("Закрытие пула PostgreSQL...")
	s.pool.Close()
	return nil
}
