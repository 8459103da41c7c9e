package tasks

import (
	"context"
	"time"

	"sahara/internal/config"
	"sahara/internal/evm"
	"sahara/internal/logger"
	"sahara/internal/sahara"
	"sahara/internal/storage"
)

// TaskRunner defines the interface for any task that can be executed.
type TaskRunner interface {
	// Run executes the task logic. client is nil for tasks configured with network "any".
	Run(ctx context.Context, signer *evm.Signer, client evm.EVMClient, params map[string]interface{}) error
}

// Keyed is implemented by tasks that must complete at most once per key.
// The processor skips the task when the key is already in the store and marks it after success.
type Keyed interface {
	CompletionKey(now time.Time) string
}

// ClientFactory opens an EVM client for a network name from rpc_nodes.
type ClientFactory func(ctx context.Context, network string) (evm.EVMClient, error)

// Deps are the shared collaborators handed to every task constructor.
type Deps struct {
	Cfg     *config.Config
	Log     logger.Logger
	Store   storage.Store
	Sahara  *sahara.Client
	Clients ClientFactory
	Confirm evm.ConfirmPolicy
	Now     func() time.Time
	// Network is the task entry's network; the processor sets it per task.
	Network string
}

// Clock returns the current time, or Now() when a clock is injected.
func (d Deps) Clock() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d Deps) txLink(hash string) string {
	return d.txLinkOn(d.Network, hash)
}

func (d Deps) txLinkOn(network, hash string) string {
	if d.Cfg == nil {
		return hash
	}
	if prefix := d.Cfg.Explorer(network); prefix != "" {
		return prefix + hash
	}
	return hash
}
