package mocks

import (
	"context"
	"sync"

	"github.com/lueurxax/mapcomplete-digest-bot/internal/core/domain"
)

// IdentityResolver is a thread-safe in-memory implementation of ports.IdentityResolver.
// Unknown contributors resolve to an empty display name and no handle.
type IdentityResolver struct {
	mu       sync.RWMutex
	names    map[string]string
	handles  map[string]string
	optOuts  map[string]domain.OptOut
	failures map[string]error
	calls    int

	// HandleFn allows overriding Handle behavior.
	HandleFn func(ctx context.Context, contributorID string) (string, bool, error)
}

// NewIdentityResolver creates a new mock identity resolver.
func NewIdentityResolver() *IdentityResolver {
	return &IdentityResolver{
		names:    make(map[string]string),
		handles:  make(map[string]string),
		optOuts:  make(map[string]domain.OptOut),
		failures: make(map[string]error),
	}
}

// SetName registers a display name.
func (r *IdentityResolver) SetName(contributorID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.names[contributorID] = name
}

// SetHandle registers a fediverse handle.
func (r *IdentityResolver) SetHandle(contributorID, handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handles[contributorID] = handle
}

// SetOptOut registers opt-out flags.
func (r *IdentityResolver) SetOptOut(contributorID string, optOut domain.OptOut) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.optOuts[contributorID] = optOut
}

// SetFailure makes every lookup of contributorID fail with err.
func (r *IdentityResolver) SetFailure(contributorID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures[contributorID] = err
}

// Calls returns the number of lookups made.
func (r *IdentityResolver) Calls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.calls
}

// DisplayName returns the registered display name.
func (r *IdentityResolver) DisplayName(_ context.Context, contributorID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++

	if err := r.failures[contributorID]; err != nil {
		return "", err
	}

	return r.names[contributorID], nil
}

// Handle returns the registered handle.
func (r *IdentityResolver) Handle(ctx context.Context, contributorID string) (string, bool, error) {
	if r.HandleFn != nil {
		return r.HandleFn(ctx, contributorID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++

	if err := r.failures[contributorID]; err != nil {
		return "", false, err
	}

	handle, ok := r.handles[contributorID]

	return handle, ok, nil
}

// OptOut returns the registered opt-out flags.
func (r *IdentityResolver) OptOut(_ context.Context, contributorID string) (domain.OptOut, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++

	if err := r.failures[contributorID]; err != nil {
		return domain.OptOut{}, err
	}

	return r.optOuts[contributorID], nil
}
