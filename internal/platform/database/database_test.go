package database

import (
	"context"
	"path/filepath"
	"testing"

	"sahara/internal/logger"
	"sahara/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorageRejectsUnknownType(t *testing.T) {
	_, err := NewStorage(context.Background(), logger.Nop(), "mongo", "", "")
	assert.ErrorIs(t, err, ErrUnsupportedDBType)
}

func TestNewStorageNeedsConnectionString(t *testing.T) {
	_, err := NewStorage(context.Background(), logger.Nop(), types.SQLite, "", "")
	assert.ErrorIs(t, err, ErrMissingConnectionString)

	_, err = NewStorage(context.Background(), logger.Nop(), types.Postgres, "", "")
	assert.ErrorIs(t, err, ErrMissingConnectionString)
}

func TestNewStorageSQLite(t *testing.T) {
	s, err := NewStorage(context.Background(), logger.Nop(), types.SQLite, filepath.Join(t.TempDir(), "t.db"), "")
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.MarkTaskCompleted(context.Background(), "0xabc", "x")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewStorageNone(t *testing.T) {
	s, err := NewStorage(context.Background(), logger.Nop(), types.None, "", "")
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
