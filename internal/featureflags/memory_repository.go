package featureflags

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository keeps flags in process memory. It backs the API when
// HISTORY_STORE is memory and in tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	flags map[string]Flag
}

// NewInMemoryRepository returns a repository seeded with DefaultFlags.
func NewInMemoryRepository() *InMemoryRepository {
	r := NewInMemoryRepositoryWithFlags(nil)
	for key, f := range DefaultFlags() {
		r.flags[key] = *f
	}
	return r
}

// NewInMemoryRepositoryWithFlags returns a repository holding copies of flags.
func NewInMemoryRepositoryWithFlags(flags map[string]*Flag) *InMemoryRepository {
	r := &InMemoryRepository{flags: make(map[string]Flag, len(flags))}
	for key, f := range flags {
		r.flags[key] = *f
	}
	return r
}

// GetAllFlags returns copies of the stored flags.
func (r *InMemoryRepository) GetAllFlags(_ context.Context) (map[string]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Flag, len(r.flags))
	for key, f := range r.flags {
		f := f
		out[key] = &f
	}
	return out, nil
}

// SetFlags stores the flags under one lock.
func (r *InMemoryRepository) SetFlags(_ context.Context, flags []*Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, f := range flags {
		r.flags[f.Key] = Flag{Key: f.Key, Value: f.Value, UpdatedAt: now}
	}
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
