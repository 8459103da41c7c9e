package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneRowPerWalletAndTask(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wallet := "0xABCDEF"
			if i%2 == 0 {
				wallet = "0xabcdef"
			}
			isNew, err := s.MarkTaskCompleted(ctx, wallet, "meme_bridge")
			assert.NoError(t, err)
			if isNew {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	rows, err := s.ListCompletedTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestResetOneWallet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, _ = s.MarkTaskCompleted(ctx, "0xa", "t1")
	_, _ = s.MarkTaskCompleted(ctx, "0xa", "t2")
	_, _ = s.MarkTaskCompleted(ctx, "0xb", "t1")

	n, err := s.ResetTasks(ctx, "0xA")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	done, err := s.IsTaskCompleted(ctx, "0xb", "t1")
	require.NoError(t, err)
	assert.True(t, done)
}
