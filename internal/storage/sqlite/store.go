package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sahara/internal/logger"
	"sahara/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

// store implements storage.Store using SQLite.
type store struct {
	db  *sql.DB
	log logger.Logger
}

const createTxTableSQL = `
CREATE TABLE IF NOT EXISTS transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp DATETIME NOT NULL,
    wallet_address TEXT NOT NULL,
    task_name TEXT NOT NULL,
    network TEXT NOT NULL,
    tx_hash TEXT,
    status TEXT NOT NULL,
    error_message TEXT
);`

const createStateTableSQL = `
CREATE TABLE IF NOT EXISTS application_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

const createCompletedTasksTableSQL = `
CREATE TABLE IF NOT EXISTS completed_tasks (
	wallet_address TEXT NOT NULL,
	task_key TEXT NOT NULL,
	completed_at DATETIME NOT NULL,
	PRIMARY KEY (wallet_address, task_key)
);`

// NewStore opens (or creates) the SQLite database at dbPath and prepares the tables.
func NewStore(ctx context.Context, log logger.Logger, dbPath string) (storage.Store, error) {
	log.Info("Инициализация SQLite базы...", "path", dbPath)

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory for sqlite db %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database at %s: %w", dbPath, err)
	}
	// одна запись за раз, иначе "database is locked"
	db.SetMaxOpenConns(1)

	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	if err = db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database at %s: %w", dbPath, err)
	}

	for name, ddl := range map[string]string{
		"transactions":      createTxTableSQL,
		"application_state": createStateTableSQL,
		"completed_tasks":   createCompletedTasksTableSQL,
	} {
		if _, err = db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to create %s table: %w", name, err)
		}
	}

	log.Success("SQLite база готова", "path", dbPath)
	return &store{db: db, log: log}, nil
}

// LogTransaction saves a transaction record to the SQLite database.
func (s *store) LogTransaction(ctx context.Context, record storage.TransactionRecord) error {
	query := `INSERT INTO transactions (timestamp, wallet_address, task_name, network, tx_hash, status, error_message)
               VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		record.Timestamp,
		record.WalletAddress,
		string(record.TaskName),
		record.Network,
		record.TxHash,
		string(record.Status),
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to execute insert query in sqlite: %w", err)
	}
	s.log.Debug("Запись о задаче сохранена в SQLite", "wallet", record.WalletAddress, "task", record.TaskName, "status", record.Status)
	return nil
}

// GetState retrieves a value from the application_state table.
func (s *store) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM application_state WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrStateNotFound
		}
		return "", fmt.Errorf("failed to query state from sqlite for key '%s': %w", key, err)
	}
	return value, nil
}

// SetState saves or updates a key-value pair in the application_state table.
func (s *store) SetState(ctx context.Context, key, value string) error {
	query := `INSERT INTO application_state (key, value)
	           VALUES (?, ?)
	           ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set state in sqlite for key '%s': %w", key, err)
	}
	return nil
}

// MarkTaskCompleted inserts a completed_tasks row unless one exists.
func (s *store) MarkTaskCompleted(ctx context.Context, wallet, taskKey string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO completed_tasks (wallet_address, task_key, completed_at) VALUES (?, ?, ?)
		 ON CONFLICT (wallet_address, task_key) DO NOTHING`,
		strings.ToLower(wallet), taskKey, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to mark task %s for %s: %w", taskKey, wallet, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// IsTaskCompleted reports whether a row exists for the wallet and task key.
func (s *store) IsTaskCompleted(ctx context.Context, wallet, taskKey string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM completed_tasks WHERE wallet_address = ? AND task_key = ?`,
		strings.ToLower(wallet), taskKey).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query task %s for %s: %w", taskKey, wallet, err)
	}
	return true, nil
}

// ListCompletedTasks returns every row ordered by wallet and time.
func (s *store) ListCompletedTasks(ctx context.Context) ([]storage.CompletedTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT wallet_address, task_key, completed_at FROM completed_tasks ORDER BY wallet_address, completed_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed tasks: %w", err)
	}
	defer rows.Close()

	var out []storage.CompletedTask
	for rows.Next() {
		var t storage.CompletedTask
		if err := rows.Scan(&t.WalletAddress, &t.TaskKey, &t.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan completed task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ResetTasks deletes completed_tasks rows for one wallet or for all of them.
func (s *store) ResetTasks(ctx context.Context, wallet string) (int64, error) {
	var res sql.Result
	var err error
	if wallet == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM completed_tasks`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM completed_tasks WHERE wallet_address = ?`, strings.ToLower(wallet))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to reset completed tasks: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *store) Close() error {
	s.log.Debug("Закрытие SQLite базы...")
	return s.db.Close()
}
