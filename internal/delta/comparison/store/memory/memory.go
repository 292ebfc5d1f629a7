package memory

import (
	"context"
	"sync"

	"fitgap/internal/delta/models"
	id "fitgap/pkg/domain"
	"fitgap/pkg/platform/sentinel"
)

type key struct {
	base    id.SnapshotID
	compare id.SnapshotID
}

// InMemoryStore caches comparisons in process memory.
type InMemoryStore struct {
	mu          sync.RWMutex
	comparisons map[key]models.Comparison
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{comparisons: make(map[key]models.Comparison)}
}

func (s *InMemoryStore) Get(_ context.Context, base, compare id.SnapshotID) (*models.Comparison, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comparisons[key{base, compare}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

// Put replaces any previous result for the same snapshot pair.
func (s *InMemoryStore) Put(_ context.Context, c *models.Comparison) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comparisons[key{c.BaseSnapshotID, c.CompareSnapshotID}] = *c
	return nil
}
