package noop

import (
	"context"

	"sahara/internal/storage"
)

// store is an implementation of storage.Store that keeps nothing.
// Useful when database logging is disabled.
type store struct{}

// NewStore creates a new no-operation store.
func NewStore() storage.Store {
	return &store{}
}

func (s *store) LogTransaction(context.Context, storage.TransactionRecord) error { return nil }

func (s *store) GetState(context.Context, string) (string, error) {
	return "", storage.ErrStateNotFound
}

func (s *store) SetState(context.Context, string, string) error { return nil }

// MarkTaskCompleted reports every mark as new since nothing is remembered.
func (s *store) MarkTaskCompleted(context.Context, string, string) (bool, error) { return true, nil }

func (s *store) IsTaskCompleted(context.Context, string, string) (bool, error) { return false, nil }

func (s *store) ListCompletedTasks(context.Context) ([]storage.CompletedTask, error) { return nil, nil }

func (s *store) ResetTasks(context.Context, string) (int64, error) { return 0, nil }

func (s *store) Close() error { return nil }
