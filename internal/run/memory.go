package run

import (
	"context"
	"slices"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// Stored runs are clones, so callers cannot mutate them afterwards.
type MemoryRepository struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewMemoryRepository creates a new in-memory run repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{runs: make(map[string]*Run)}
}

// Save stores a clone of r.
func (m *MemoryRepository) Save(_ context.Context, r *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = r.Clone()
	return nil
}

// FindByID returns a clone of the stored run.
func (m *MemoryRepository) FindByID(_ context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return r.Clone(), nil
}

// List returns clones of all runs, oldest first.
func (m *MemoryRepository) List(_ context.Context) ([]*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r.Clone())
	}
	slices.SortFunc(out, func(a, b *Run) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}
