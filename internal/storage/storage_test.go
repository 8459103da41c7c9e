package storage_test

import (
	"context"
	"testing"
	"time"

	"sahara/internal/storage"
	"sahara/internal/storage/noop"
	"sahara/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestDailyKeyUsesUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	day := time.Date(2026, 10, 19, 1, 30, 0, 0, loc)
	assert.Equal(t, "sahara_daily:2026-10-18", storage.DailyKey(types.TaskNameDaily, day))
}

func TestNewLockedDoesNotDoubleWrap(t *testing.T) {
	s := storage.NewLocked(noop.NewStore())
	assert.Same(t, s, storage.NewLocked(s))
}

func TestNoopStoreForgetsEverything(t *testing.T) {
	ctx := context.Background()
	s := noop.NewStore()

	ok, err := s.MarkTaskCompleted(ctx, "0x1", "a")
	assert.NoError(t, err)
	assert.True(t, ok)

	done, err := s.IsTaskCompleted(ctx, "0x1", "a")
	assert.NoError(t, err)
	assert.False(t, done)

	_, err = s.GetState(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrStateNotFound)
}
