package memory

import (
	"context"
	"sort"
	"sync"

	"fitgap/internal/signatory/models"
	id "fitgap/pkg/domain"
	"fitgap/pkg/platform/sentinel"
	txcontext "fitgap/pkg/platform/tx"
)

// InMemoryStore keeps one signatory per (assessment, role).
type InMemoryStore struct {
	mu          sync.RWMutex
	signatories map[id.AssessmentID]map[models.Role]models.Signatory
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{signatories: make(map[id.AssessmentID]map[models.Role]models.Signatory)}
}

func (s *InMemoryStore) Create(ctx context.Context, sig *models.Signatory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byRole, ok := s.signatories[sig.AssessmentID]
	if !ok {
		byRole = make(map[models.Role]models.Signatory)
		s.signatories[sig.AssessmentID] = byRole
	}
	if _, exists := byRole[sig.Role]; exists {
		return sentinel.ErrConflict
	}
	byRole[sig.Role] = *sig
	txcontext.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.signatories[sig.AssessmentID], sig.Role)
	})
	return nil
}

// ListByAssessment returns signatories in signing order.
func (s *InMemoryStore) ListByAssessment(_ context.Context, assessmentID id.AssessmentID) ([]*models.Signatory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Signatory, 0, len(s.signatories[assessmentID]))
	for _, sig := range s.signatories[assessmentID] {
		out = append(out, &sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignedAt.Before(out[j].SignedAt) })
	return out, nil
}
