package tasks

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"sahara/internal/types"
)

var (
	// ErrTaskConstructorAlreadyRegistered indicates that a task constructor with the same name is already registered.
	ErrTaskConstructorAlreadyRegistered = errors.New("task constructor already registered")
	// ErrTaskConstructorNotFound indicates that a task constructor with the given name was not found in the registry.
	ErrTaskConstructorNotFound = errors.New("task constructor not found in registry")
)

// TaskConstructor creates a task runner bound to the shared dependencies.
type TaskConstructor func(deps Deps) TaskRunner

// Registry maps task names to constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[types.TaskName]TaskConstructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[types.TaskName]TaskConstructor)}
}

// Register adds a constructor under name.
func (r *Registry) Register(name types.TaskName, constructor TaskConstructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; exists {
		return fmt.Errorf("%w: %s", ErrTaskConstructorAlreadyRegistered, name)
	}
	r.constructors[name] = constructor
	return nil
}

// MustRegister registers a task constructor or panics if the name is already registered.
func (r *Registry) MustRegister(name types.TaskName, constructor TaskConstructor) {
	if err := r.Register(name, constructor); err != nil {
		panic(err.Error())
	}
}

// New creates a task runner instance by its name.
func (r *Registry) New(name types.TaskName, deps Deps) (TaskRunner, error) {
	r.mu.RLock()
	constructor, exists := r.constructors[name]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTaskConstructorNotFound, name)
	}
	return constructor(deps), nil
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []types.TaskName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.TaskName, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Constructors lists every task this binary knows how to run.
func Constructors() map[types.TaskName]TaskConstructor {
	return map[types.TaskName]TaskConstructor{
		types.TaskNameLogBalance:   NewLogBalanceTask,
		types.TaskNameDaily:        NewDailyTask,
		types.TaskNameSelfTransfer: NewSelfTransferTask,
		types.TaskNameMemeBridge:   NewMemeBridgeTask,
	}
}
