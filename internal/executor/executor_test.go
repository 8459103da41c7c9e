package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"sahara/internal/config"
	"sahara/internal/evm"
	"sahara/internal/logger"
	"sahara/internal/retry"
	"sahara/internal/types"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner returns errs in order, then nil.
type scriptedRunner struct {
	errs  []error
	calls int
}

func (r *scriptedRunner) Run(context.Context, *evm.Signer, evm.EVMClient, map[string]interface{}) error {
	r.calls++
	if len(r.errs) == 0 {
		return nil
	}
	err := r.errs[0]
	r.errs = r.errs[1:]
	return err
}

func newExecutor(attempts int) *Executor {
	cfg := &config.Config{}
	cfg.Delay.BetweenRetries.Attempts = attempts
	return NewExecutor(cfg, logger.Nop())
}

func signer(t *testing.T) *evm.Signer {
	pk, err := crypto.GenerateKey()
	require.NoError(t, err)
	return evm.NewSigner(pk)
}

func TestRetriesTransientErrors(t *testing.T) {
	r := &scriptedRunner{errs: []error{errors.New("connection reset by peer"), retry.ErrRateLimited}}
	status, err := newExecutor(3).ExecuteTaskWithRetries(context.Background(), signer(t), nil,
		config.TaskConfigEntry{Name: types.TaskNameLogBalance}, r)

	require.NoError(t, err)
	assert.Equal(t, types.TxStatusSuccess, status)
	assert.Equal(t, 3, r.calls)
}

func TestStopsAfterAttempts(t *testing.T) {
	r := &scriptedRunner{errs: []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}}
	status, err := newExecutor(2).ExecuteTaskWithRetries(context.Background(), signer(t), nil,
		config.TaskConfigEntry{Name: types.TaskNameLogBalance}, r)

	assert.Error(t, err)
	assert.Equal(t, types.TxStatusFailed, status)
	assert.Equal(t, 2, r.calls)
}

func TestGivesUpWithoutRetry(t *testing.T) {
	r := &scriptedRunner{errs: []error{fmt.Errorf("send: %w", retry.ErrInsufficientBalance)}}
	status, err := newExecutor(5).ExecuteTaskWithRetries(context.Background(), signer(t), nil,
		config.TaskConfigEntry{Name: types.TaskNameSelfTransfer}, r)

	assert.ErrorIs(t, err, retry.ErrInsufficientBalance)
	assert.Equal(t, types.TxStatusFailed, status)
	assert.Equal(t, 1, r.calls)
}

func TestFatalStopsImmediately(t *testing.T) {
	r := &scriptedRunner{errs: []error{retry.ErrUnauthorized}}
	status, err := newExecutor(5).ExecuteTaskWithRetries(context.Background(), signer(t), nil,
		config.TaskConfigEntry{Name: types.TaskNameDaily}, r)

	assert.ErrorIs(t, err, retry.ErrUnauthorized)
	assert.Equal(t, types.TxStatusFailed, status)
	assert.Equal(t, 1, r.calls)
}

func TestAlreadyDoneIsSkipped(t *testing.T) {
	r := &scriptedRunner{errs: []error{fmt.Errorf("claim: %w", retry.ErrAlreadyDone)}}
	status, err := newExecutor(3).ExecuteTaskWithRetries(context.Background(), signer(t), nil,
		config.TaskConfigEntry{Name: types.TaskNameDaily}, r)

	require.NoError(t, err)
	assert.Equal(t, types.TxStatusSkipped, status)
	assert.Equal(t, 1, r.calls)
}
