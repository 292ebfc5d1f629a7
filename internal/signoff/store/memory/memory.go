// Package memory provides in-memory sign-off stores. Row locking is
// provided by tx.MemoryRunner, which serializes transactions; mutations
// register undo steps so they roll back with it.
package memory

import (
	"context"
	"sort"
	"sync"

	"fitgap/internal/signoff/models"
	id "fitgap/pkg/domain"
	"fitgap/pkg/platform/sentinel"
	txcontext "fitgap/pkg/platform/tx"
)

type ProcessStore struct {
	mu           sync.RWMutex
	processes    map[id.SignOffID]models.Process
	byAssessment map[id.AssessmentID]id.SignOffID
}

func NewProcessStore() *ProcessStore {
	return &ProcessStore{
		processes:    make(map[id.SignOffID]models.Process),
		byAssessment: make(map[id.AssessmentID]id.SignOffID),
	}
}

func (s *ProcessStore) Create(ctx context.Context, p *models.Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byAssessment[p.AssessmentID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.processes[p.ID]; ok {
		return sentinel.ErrConflict
	}
	s.processes[p.ID] = cloneProcess(*p)
	s.byAssessment[p.AssessmentID] = p.ID
	txcontext.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.processes, p.ID)
		delete(s.byAssessment, p.AssessmentID)
	})
	return nil
}

func (s *ProcessStore) FindByID(_ context.Context, signOffID id.SignOffID) (*models.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.processes[signOffID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneProcess(p)
	return &out, nil
}

// FindByIDForUpdate is FindByID; the memory runner already holds the
// transaction lock.
func (s *ProcessStore) FindByIDForUpdate(ctx context.Context, signOffID id.SignOffID) (*models.Process, error) {
	return s.FindByID(ctx, signOffID)
}

func (s *ProcessStore) FindByAssessment(ctx context.Context, assessmentID id.AssessmentID) (*models.Process, error) {
	s.mu.RLock()
	signOffID, ok := s.byAssessment[assessmentID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.FindByID(ctx, signOffID)
}

func (s *ProcessStore) UpdateStatus(ctx context.Context, p *models.Process, from models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.processes[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if prev.Status != from {
		return sentinel.ErrConflict
	}
	s.processes[p.ID] = cloneProcess(*p)
	txcontext.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.processes[p.ID] = prev
	})
	return nil
}

func cloneProcess(p models.Process) models.Process {
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		p.CompletedAt = &t
	}
	return p
}

type AreaValidationStore struct {
	mu          sync.RWMutex
	validations map[id.SignOffID]map[string]models.AreaValidation
}

func NewAreaValidationStore() *AreaValidationStore {
	return &AreaValidationStore{validations: make(map[id.SignOffID]map[string]models.AreaValidation)}
}

// Upsert keeps the ID of an existing row for the same area.
func (s *AreaValidationStore) Upsert(ctx context.Context, v *models.AreaValidation) (*models.AreaValidation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byArea, ok := s.validations[v.SignOffID]
	if !ok {
		byArea = make(map[string]models.AreaValidation)
		s.validations[v.SignOffID] = byArea
	}
	prev, existed := byArea[v.FunctionalArea]
	stored := *v
	if existed {
		stored.ID = prev.ID
	}
	byArea[v.FunctionalArea] = stored
	txcontext.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			s.validations[v.SignOffID][v.FunctionalArea] = prev
		} else {
			delete(s.validations[v.SignOffID], v.FunctionalArea)
		}
	})
	return &stored, nil
}

// ListBySignOff returns validations ordered by functional area.
func (s *AreaValidationStore) ListBySignOff(_ context.Context, signOffID id.SignOffID) ([]*models.AreaValidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.AreaValidation, 0, len(s.validations[signOffID]))
	for _, v := range s.validations[signOffID] {
		out = append(out, &v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FunctionalArea < out[j].FunctionalArea })
	return out, nil
}

type SignatureStore struct {
	mu         sync.RWMutex
	signatures map[id.SignOffID]map[models.SignatureType]models.SignatureRecord
}

func NewSignatureStore() *SignatureStore {
	return &SignatureStore{signatures: make(map[id.SignOffID]map[models.SignatureType]models.SignatureRecord)}
}

func (s *SignatureStore) CreateIfAbsent(ctx context.Context, r *models.SignatureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byType, ok := s.signatures[r.SignOffID]
	if !ok {
		byType = make(map[models.SignatureType]models.SignatureRecord)
		s.signatures[r.SignOffID] = byType
	}
	if _, exists := byType[r.Type]; exists {
		return sentinel.ErrConflict
	}
	byType[r.Type] = *r
	txcontext.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.signatures[r.SignOffID], r.Type)
	})
	return nil
}

func (s *SignatureStore) FindByType(_ context.Context, signOffID id.SignOffID, t models.SignatureType) (*models.SignatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.signatures[signOffID][t]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

// ListBySignOff returns signatures in signing order.
func (s *SignatureStore) ListBySignOff(_ context.Context, signOffID id.SignOffID) ([]*models.SignatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.SignatureRecord, 0, len(s.signatures[signOffID]))
	for _, r := range s.signatures[signOffID] {
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignedAt.Before(out[j].SignedAt) })
	return out, nil
}
