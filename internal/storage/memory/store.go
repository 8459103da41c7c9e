// Package memory is a process-local storage.Store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"sahara/internal/storage"
)

type taskKey struct {
	wallet string
	key    string
}

// Store keeps records in maps. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	records   []storage.TransactionRecord
	state     map[string]string
	completed map[taskKey]time.Time
}

var _ storage.Store = (*Store)(nil)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state:     map[string]string{},
		completed: map[taskKey]time.Time{},
	}
}

func (s *Store) LogTransaction(_ context.Context, record storage.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of the logged transaction records.
func (s *Store) Records() []storage.TransactionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.TransactionRecord(nil), s.records...)
}

func (s *Store) GetState(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state[key]
	if !ok {
		return "", storage.ErrStateNotFound
	}
	return v, nil
}

func (s *Store) SetState(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = value
	return nil
}

func (s *Store) MarkTaskCompleted(_ context.Context, wallet, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := taskKey{wallet: strings.ToLower(wallet), key: key}
	if _, ok := s.completed[k]; ok {
		return false, nil
	}
	s.completed[k] = time.Now().UTC()
	return true, nil
}

func (s *Store) IsTaskCompleted(_ context.Context, wallet, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.completed[taskKey{wallet: strings.ToLower(wallet), key: key}]
	return ok, nil
}

func (s *Store) ListCompletedTasks(context.Context) ([]storage.CompletedTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.CompletedTask, 0, len(s.completed))
	for k, at := range s.completed {
		out = append(out, storage.CompletedTask{WalletAddress: k.wallet, TaskKey: k.key, CompletedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WalletAddress != out[j].WalletAddress {
			return out[i].WalletAddress < out[j].WalletAddress
		}
		return out[i].TaskKey < out[j].TaskKey
	})
	return out, nil
}

func (s *Store) ResetTasks(_ context.Context, wallet string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wallet = strings.ToLower(wallet)
	var n int64
	for k := range s.completed {
		if wallet == "" || k.wallet == wallet {
			delete(s.completed, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) Close() error { return nil }
