package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"sahara/internal/config"
	"sahara/internal/evm"
	"sahara/internal/evm/evmtest"
	"sahara/internal/keyloader"
	"sahara/internal/logger"
	"sahara/internal/retry"
	"sahara/internal/storage/memory"
	"sahara/internal/tasks"
	"sahara/internal/types"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	onceTask  types.TaskName = "once"
	plainTask types.TaskName = "plain"
)

type countingTask struct {
	mu      *sync.Mutex
	calls   *int
	err     error
	keyed   bool
	clients *[]evm.EVMClient
}

func (c *countingTask) Run(_ context.Context, _ *evm.Signer, client evm.EVMClient, _ map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.calls++
	*c.clients = append(*c.clients, client)
	return c.err
}

type keyedTask struct{ *countingTask }

func (k keyedTask) CompletionKey(now time.Time) string { return "once:" + now.Format("2006-01-02") }

type fixture struct {
	env      Env
	store    *memory.Store
	calls    map[types.TaskName]*int
	clients  []evm.EVMClient
	opened   []*evmtest.FakeClient
	taskErrs map[types.TaskName]error
}

func newFixture(t *testing.T, sequence ...types.TaskName) *fixture {
	f := &fixture{
		store:    memory.NewStore(),
		calls:    map[types.TaskName]*int{onceTask: new(int), plainTask: new(int)},
		taskErrs: map[types.TaskName]error{},
	}
	var mu sync.Mutex

	registry := tasks.NewRegistry()
	registry.MustRegister(onceTask, func(tasks.Deps) tasks.TaskRunner {
		return keyedTask{&countingTask{mu: &mu, calls: f.calls[onceTask], err: f.taskErrs[onceTask], clients: &f.clients}}
	})
	registry.MustRegister(plainTask, func(tasks.Deps) tasks.TaskRunner {
		return &countingTask{mu: &mu, calls: f.calls[plainTask], err: f.taskErrs[plainTask], clients: &f.clients}
	})

	cfg := &config.Config{
		Tasks: []config.TaskConfigEntry{
			{Name: onceTask, Network: "sahara", Enabled: true},
			{Name: plainTask, Network: "any", Enabled: true},
		},
	}
	cfg.Delay.BetweenRetries.Attempts = 1
	for _, name := range sequence {
		cfg.Actions.ExplicitTaskSequence = append(cfg.Actions.ExplicitTaskSequence, string(name))
	}

	f.env = Env{
		Cfg:      cfg,
		Store:    f.store,
		Registry: registry,
		Log:      logger.Nop(),
		TaskDeps: tasks.Deps{
			Log: logger.Nop(),
			Now: func() time.Time { return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) },
			Clients: func(_ context.Context, network string) (evm.EVMClient, error) {
				assert.Equal(t, "sahara", network)
				c := evmtest.NewFakeClient(nil)
				f.opened = append(f.opened, c)
				return c, nil
			},
		},
	}
	return f
}

func key(t *testing.T) *keyloader.LoadedKey {
	pk, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &keyloader.LoadedKey{PrivateKey: pk, Address: crypto.PubkeyToAddress(pk.PublicKey)}
}

func TestKeyedTaskRunsOncePerKey(t *testing.T) {
	f := newFixture(t, onceTask)
	k := key(t)

	require.NoError(t, NewProcessor(f.env, k, 0, 1, 1).Process(context.Background()))
	require.NoError(t, NewProcessor(f.env, k, 0, 1, 1).Process(context.Background()))

	assert.Equal(t, 1, *f.calls[onceTask])
	records := f.store.Records()
	require.Len(t, records, 2)
	assert.Equal(t, types.TxStatusSuccess, records[0].Status)
	assert.Equal(t, types.TxStatusSkipped, records[1].Status)

	rows, err := f.store.ListCompletedTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestClientOpenedForNetworkAndClosed(t *testing.T) {
	f := newFixture(t, onceTask, plainTask)

	require.NoError(t, NewProcessor(f.env, key(t), 0, 1, 1).Process(context.Background()))

	require.Len(t, f.opened, 1)
	assert.True(t, f.opened[0].Closed)
	require.Len(t, f.clients, 2)
	assert.NotNil(t, f.clients[0])
	assert.Nil(t, f.clients[1])
}

func TestFatalErrorStopsWallet(t *testing.T) {
	f := newFixture(t, plainTask, onceTask)
	f.taskErrs[plainTask] = retry.ErrUnauthorized

	err := NewProcessor(f.env, key(t), 0, 1, 1).Process(context.Background())
	assert.ErrorIs(t, err, retry.ErrUnauthorized)
	assert.Equal(t, 0, *f.calls[onceTask])
}

func TestFailedTaskDoesNotStopNextAndIsNotMarked(t *testing.T) {
	f := newFixture(t, onceTask, plainTask)
	f.taskErrs[onceTask] = retry.ErrInsufficientBalance

	err := NewProcessor(f.env, key(t), 0, 1, 1).Process(context.Background())
	assert.ErrorIs(t, err, retry.ErrInsufficientBalance)
	assert.Equal(t, 1, *f.calls[plainTask])

	rows, err := f.store.ListCompletedTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUnknownTaskIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.env.Cfg.Tasks = append(f.env.Cfg.Tasks, config.TaskConfigEntry{Name: "ghost", Network: "any", Enabled: true})
	f.env.Cfg.Actions.ExplicitTaskSequence = []string{"ghost"}

	err := NewProcessor(f.env, key(t), 0, 1, 1).Process(context.Background())
	assert.ErrorIs(t, err, tasks.ErrTaskConstructorNotFound)
	records := f.store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, types.TxStatusErrorBeforeSend, records[0].Status)
}
