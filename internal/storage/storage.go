package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"sahara/internal/types"
)

// ErrStateNotFound is returned by GetState for a key that was never set.
var ErrStateNotFound = errors.New("state not found")

// TransactionRecord represents information about an executed task attempt.
type TransactionRecord struct {
	Timestamp     time.Time      `json:"timestamp"`
	WalletAddress string         `json:"wallet_address"`
	TaskName      types.TaskName `json:"task_name"`
	Network       string         `json:"network"`
	TxHash        string         `json:"tx_hash,omitempty"`
	Status        types.TxStatus `json:"status"`
	Error         string         `json:"error,omitempty"`
}

// CompletedTask is one row of the completed_tasks table.
type CompletedTask struct {
	WalletAddress string
	TaskKey       string
	CompletedAt   time.Time
}

// TransactionLogger defines the interface for storing task history.
type TransactionLogger interface {
	LogTransaction(ctx context.Context, record TransactionRecord) error
	Close() error
}

// StateStorage keeps small key/value application state such as the resume index.
type StateStorage interface {
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error
}

// TaskStore records which tasks a wallet already completed.
// There is at most one row per wallet per task key.
type TaskStore interface {
	// MarkTaskCompleted inserts the row and reports whether it was new.
	MarkTaskCompleted(ctx context.Context, wallet, taskKey string) (bool, error)
	IsTaskCompleted(ctx context.Context, wallet, taskKey string) (bool, error)
	ListCompletedTasks(ctx context.Context) ([]CompletedTask, error)
	// ResetTasks deletes the rows of one wallet, or of every wallet when wallet is empty.
	ResetTasks(ctx context.Context, wallet string) (int64, error)
}

// Store is everything a backend provides.
type Store interface {
	TransactionLogger
	StateStorage
	TaskStore
}

// lockedStore serializes every call to the wrapped store with one mutex.
// SQLite allows a single writer and the workers share one handle.
type lockedStore struct {
	mu    sync.Mutex
	inner Store
}

// NewLocked wraps s so that concurrent wallet workers never interleave store calls.
func NewLocked(s Store) Store {
	if ls, ok := s.(*lockedStore); ok {
		return ls
	}
	return &lockedStore{inner: s}
}

func (l *lockedStore) LogTransaction(ctx context.Context, record TransactionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.LogTransaction(ctx, record)
}

func (l *lockedStore) GetState(ctx context.Context, key string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.GetState(ctx, key)
}

func (l *lockedStore) SetState(ctx context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.SetState(ctx, key, value)
}

func (l *lockedStore) MarkTaskCompleted(ctx context.Context, wallet, taskKey string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.MarkTaskCompleted(ctx, wallet, taskKey)
}

func (l *lockedStore) IsTaskCompleted(ctx context.Context, wallet, taskKey string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.IsTaskCompleted(ctx, wallet, taskKey)
}

func (l *lockedStore) ListCompletedTasks(ctx context.Context) ([]CompletedTask, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.ListCompletedTasks(ctx)
}

func (l *lockedStore) ResetTasks(ctx context.Context, wallet string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.ResetTasks(ctx, wallet)
}

func (l *lockedStore) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Close()
}

// DailyKey scopes a task key to a UTC calendar day so daily tasks get one row per day.
func DailyKey(task types.TaskName, day time.Time) string {
	return string(task) + ":" + day.UTC().Format("2006-01-02")
}
