package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Decision
	}{
		{"canceled", context.Canceled, Fatal},
		{"wrapped deadline", fmt.Errorf("claim: %w", context.DeadlineExceeded), Fatal},
		{"unauthorized", fmt.Errorf("login: %w", ErrUnauthorized), Fatal},
		{"proxy auth", errors.New("407 Proxy Authentication Required"), Fatal},
		{"already claimed", errors.New(`{"error":"task has been claimed"}`), GiveUp},
		{"already done sentinel", fmt.Errorf("task 1002: %w", ErrAlreadyDone), GiveUp},
		{"no funds", errors.New("insufficient funds for gas * price + value"), GiveUp},
		{"no funds sentinel", ErrInsufficientBalance, GiveUp},
		{"faucet limit", errors.New("You have exceeded the rate limit."), GiveUp},
		{"rate limited", fmt.Errorf("flush: %w", ErrRateLimited), Retry},
		{"receipt not found", fmt.Errorf("receipt: %w", ethereum.NotFound), Retry},
		{"tx not found text", errors.New("transaction not found"), Retry},
		{"underpriced", errors.New("replacement transaction underpriced"), Retry},
		{"unknown", errors.New("something odd"), Retry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 5}, func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnGiveUp(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 5}, func(int) error {
		calls++
		return ErrAlreadyDone
	})
	assert.ErrorIs(t, err, ErrAlreadyDone)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnFatal(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 5}, func(int) error {
		calls++
		return errors.New("Proxy Authentication Required")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3}, func(int) error {
		calls++
		return errors.New("temporary")
	})
	assert.EqualError(t, err, "temporary")
	assert.Equal(t, 3, calls)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Policy{}, func(int) error {
		calls++
		return errors.New("temporary")
	})
	assert.Equal(t, 1, calls)
}
