// Package memory is an in-memory decision log store. Entries are kept per
// assessment in append order, which is timestamp order.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"fitgap/internal/decisionlog/models"
	id "fitgap/pkg/domain"
	"fitgap/pkg/platform/sentinel"
	txcontext "fitgap/pkg/platform/tx"
)

// row holds the value documents as JSON, like the jsonb columns of the
// Postgres store, so nothing a caller holds can reach stored state.
type row struct {
	entry    models.Entry
	oldValue []byte
	newValue []byte
}

type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.AssessmentID][]row
	index   map[id.EntryID]id.AssessmentID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[id.AssessmentID][]row),
		index:   make(map[id.EntryID]id.AssessmentID),
	}
}

func (s *InMemoryStore) Append(ctx context.Context, entry *models.Entry) error {
	r, err := encode(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.index[entry.ID]; exists {
		return sentinel.ErrConflict
	}
	s.entries[entry.AssessmentID] = append(s.entries[entry.AssessmentID], r)
	s.index[entry.ID] = entry.AssessmentID

	txcontext.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.entries[entry.AssessmentID]
		for i := len(list) - 1; i >= 0; i-- {
			if list[i].entry.ID == entry.ID {
				s.entries[entry.AssessmentID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		delete(s.index, entry.ID)
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, entryID id.EntryID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assessmentID, ok := s.index[entryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	for _, r := range s.entries[assessmentID] {
		if r.entry.ID == entryID {
			return r.decode()
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context, params models.ListParams) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.entries[params.AssessmentID]

	start := len(list) - 1
	if params.Cursor != nil {
		start = -1
		for i := len(list) - 1; i >= 0; i-- {
			if list[i].entry.ID == *params.Cursor {
				start = i - 1
				break
			}
		}
	}

	out := make([]*models.Entry, 0, min(params.Limit, len(list)))
	for i := start; i >= 0 && len(out) < params.Limit; i-- {
		if !params.Filter.Matches(&list[i].entry) {
			continue
		}
		e, err := list[i].decode()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func encode(entry *models.Entry) (row, error) {
	r := row{entry: *entry}
	r.entry.OldValue, r.entry.NewValue = nil, nil

	var err error
	if r.oldValue, err = marshalValue(entry.OldValue); err != nil {
		return row{}, err
	}
	if r.newValue, err = marshalValue(entry.NewValue); err != nil {
		return row{}, err
	}
	return r, nil
}

func (r row) decode() (*models.Entry, error) {
	e := r.entry
	if err := unmarshalValue(r.oldValue, &e.OldValue); err != nil {
		return nil, err
	}
	if err := unmarshalValue(r.newValue, &e.NewValue); err != nil {
		return nil, err
	}
	return &e, nil
}

func marshalValue(v map[string]any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode ledger value: %w", err)
	}
	return raw, nil
}

func unmarshalValue(raw []byte, dst *map[string]any) error {
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode ledger value: %w", err)
	}
	return nil
}
