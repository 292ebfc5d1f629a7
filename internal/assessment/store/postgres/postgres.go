// Package postgres persists assessments and their immutable snapshots.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fitgap/internal/assessment/models"
	"fitgap/internal/platform/postgres"
	id "fitgap/pkg/domain"
	"fitgap/pkg/platform/sentinel"
)

// AssessmentStore reads and updates the assessments table.
type AssessmentStore struct {
	db postgres.Querier
}

func NewAssessmentStore(db postgres.Querier) *AssessmentStore {
	return &AssessmentStore{db: db}
}

func (s *AssessmentStore) Save(ctx context.Context, a *models.Assessment) error {
	_, err := postgres.QuerierFromCtx(ctx, s.db).Exec(ctx, `
		INSERT INTO assessments (id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
	`, uuid.UUID(a.ID), a.Name, string(a.Status), a.CreatedAt, a.UpdatedAt)
	return postgres.MapError(err, "assessment", a.ID)
}

const selectAssessment = `SELECT id, name, status, created_at, updated_at FROM assessments WHERE id = $1`

func (s *AssessmentStore) FindByID(ctx context.Context, assessmentID id.AssessmentID) (*models.Assessment, error) {
	return s.find(ctx, selectAssessment, assessmentID)
}

// FindByIDForUpdate locks the assessment row until the surrounding
// transaction ends, serializing writers that decide on the assessment's
// status. It must run inside RunInTx.
func (s *AssessmentStore) FindByIDForUpdate(ctx context.Context, assessmentID id.AssessmentID) (*models.Assessment, error) {
	return s.find(ctx, selectAssessment+" FOR UPDATE", assessmentID)
}

func (s *AssessmentStore) find(ctx context.Context, query string, assessmentID id.AssessmentID) (*models.Assessment, error) {
	var (
		a      models.Assessment
		rawID  uuid.UUID
		status string
	)
	err := postgres.QuerierFromCtx(ctx, s.db).QueryRow(ctx, query, uuid.UUID(assessmentID)).
		Scan(&rawID, &a.Name, &status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, postgres.MapError(err, "assessment", assessmentID)
	}
	a.ID = id.AssessmentID(rawID)
	a.Status = models.Status(status)
	return &a, nil
}

func (s *AssessmentStore) UpdateStatus(ctx context.Context, assessmentID id.AssessmentID, status models.Status, now time.Time) error {
	tag, err := postgres.QuerierFromCtx(ctx, s.db).Exec(ctx, `
		UPDATE assessments SET status = $2, updated_at = $3 WHERE id = $1
	`, uuid.UUID(assessmentID), string(status), now)
	if err != nil {
		return postgres.MapError(err, "assessment", assessmentID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assessment %s: %w", assessmentID, sentinel.ErrNotFound)
	}
	return nil
}

// SnapshotStore reads and creates rows in assessment_snapshots. A database
// trigger rejects UPDATE and DELETE.
type SnapshotStore struct {
	db postgres.Querier
}

func NewSnapshotStore(db postgres.Querier) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) Create(ctx context.Context, snap *models.Snapshot) error {
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}
	var createdBy *uuid.UUID
	if !snap.CreatedBy.IsNil() {
		u := uuid.UUID(snap.CreatedBy)
		createdBy = &u
	}
	_, err = postgres.QuerierFromCtx(ctx, s.db).Exec(ctx, `
		INSERT INTO assessment_snapshots (id, assessment_id, version, data, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(snap.ID), uuid.UUID(snap.AssessmentID), snap.Version, data, createdBy, snap.CreatedAt)
	return postgres.MapError(err, "snapshot", snap.ID)
}

func (s *SnapshotStore) FindByID(ctx context.Context, snapshotID id.SnapshotID) (*models.Snapshot, error) {
	var (
		snap         models.Snapshot
		rawID        uuid.UUID
		assessmentID uuid.UUID
		createdBy    *uuid.UUID
		data         []byte
	)
	err := postgres.QuerierFromCtx(ctx, s.db).QueryRow(ctx, `
		SELECT id, assessment_id, version, data, created_by, created_at
		FROM assessment_snapshots WHERE id = $1
	`, uuid.UUID(snapshotID)).Scan(&rawID, &assessmentID, &snap.Version, &data, &createdBy, &snap.CreatedAt)
	if err != nil {
		return nil, postgres.MapError(err, "snapshot", snapshotID)
	}
	if err := json.Unmarshal(data, &snap.Data); err != nil {
		return nil, fmt.Errorf("decode snapshot %s data: %w", snapshotID, err)
	}
	snap.ID = id.SnapshotID(rawID)
	snap.AssessmentID = id.AssessmentID(assessmentID)
	if createdBy != nil {
		snap.CreatedBy = id.UserID(*createdBy)
	}
	return &snap, nil
}
