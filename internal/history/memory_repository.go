package history

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Appends are serialized; readers always see a consistent prefix of the log.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records []*Record
	ids     map[string]struct{}
}

// NewInMemoryRepository creates a new in-memory history repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		ids: make(map[string]struct{}),
	}
}

// Append stores a copy of rec.
func (r *InMemoryRepository) Append(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[rec.ID]; ok {
		return ErrDuplicateRecord
	}

	rec.Sequence = int64(len(r.records) + 1)
	cpy := *rec
	r.records = append(r.records, &cpy)
	r.ids[rec.ID] = struct{}{}
	return nil
}

// List returns copies of all records in insertion order.
func (r *InMemoryRepository) List(_ context.Context) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		cpy := *rec
		out = append(out, &cpy)
	}
	return out, nil
}

// Ensure InMemoryRepository implements Repository.
var _ Repository = (*InMemoryRepository)(nil)
