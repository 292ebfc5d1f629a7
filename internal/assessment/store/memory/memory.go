// Package memory provides in-memory assessment and snapshot stores for tests
// and database-less runs. Mutations register undo steps so they roll back
// with the surrounding tx.MemoryRunner transaction.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"fitgap/internal/assessment/models"
	id "fitgap/pkg/domain"
	"fitgap/pkg/platform/sentinel"
	txcontext "fitgap/pkg/platform/tx"
)

// AssessmentStore keeps assessments keyed by ID.
type AssessmentStore struct {
	mu          sync.RWMutex
	assessments map[id.AssessmentID]models.Assessment
}

func NewAssessmentStore() *AssessmentStore {
	return &AssessmentStore{assessments: make(map[id.AssessmentID]models.Assessment)}
}

// Save inserts or replaces an assessment.
func (s *AssessmentStore) Save(ctx context.Context, a *models.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.assessments[a.ID]
	s.assessments[a.ID] = *a
	txcontext.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			s.assessments[a.ID] = prev
		} else {
			delete(s.assessments, a.ID)
		}
	})
	return nil
}

func (s *AssessmentStore) FindByID(_ context.Context, assessmentID id.AssessmentID) (*models.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[assessmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &a, nil
}

// FindByIDForUpdate is FindByID; the MemoryRunner lock already serializes
// transactions.
func (s *AssessmentStore) FindByIDForUpdate(ctx context.Context, assessmentID id.AssessmentID) (*models.Assessment, error) {
	return s.FindByID(ctx, assessmentID)
}

func (s *AssessmentStore) UpdateStatus(ctx context.Context, assessmentID id.AssessmentID, status models.Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assessments[assessmentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	prev := a
	a.Status = status
	a.UpdatedAt = now
	s.assessments[assessmentID] = a
	txcontext.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.assessments[assessmentID] = prev
	})
	return nil
}

// SnapshotStore keeps immutable snapshots. There is no update path.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[id.SnapshotID]models.Snapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[id.SnapshotID]models.Snapshot)}
}

// Create stores a new snapshot. A second snapshot with the same
// (assessment, version) or ID is a conflict.
func (s *SnapshotStore) Create(ctx context.Context, snap *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[snap.ID]; ok {
		return sentinel.ErrConflict
	}
	for _, existing := range s.snapshots {
		if existing.AssessmentID == snap.AssessmentID && existing.Version == snap.Version {
			return sentinel.ErrConflict
		}
	}
	s.snapshots[snap.ID] = cloneSnapshot(*snap)
	txcontext.RecordUndo(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.snapshots, snap.ID)
	})
	return nil
}

func (s *SnapshotStore) FindByID(_ context.Context, snapshotID id.SnapshotID) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[snapshotID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneSnapshot(snap)
	return &out, nil
}

// cloneSnapshot copies the data slices so callers cannot alter stored state.
func cloneSnapshot(s models.Snapshot) models.Snapshot {
	s.Data = models.SnapshotData{
		ScopeSelections:      slices.Clone(s.Data.ScopeSelections),
		StepClassifications:  slices.Clone(s.Data.StepClassifications),
		GapResolutions:       slices.Clone(s.Data.GapResolutions),
		IntegrationPoints:    slices.Clone(s.Data.IntegrationPoints),
		DataMigrationObjects: slices.Clone(s.Data.DataMigrationObjects),
	}
	return s
}
