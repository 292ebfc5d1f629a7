// Package postgres persists computed comparisons so they survive restarts.
// Rows are upserted; a recompute overwrites the previous result.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"fitgap/internal/delta/models"
	"fitgap/internal/platform/postgres"
	id "fitgap/pkg/domain"
)

const table = "snapshot_comparisons"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Store struct {
	db postgres.Querier
}

func New(db postgres.Querier) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, base, compare id.SnapshotID) (*models.Comparison, error) {
	query, args, err := psql.
		Select("assessment_id", "report", "summary", "computed_at").
		From(table).
		Where("base_snapshot_id = ?", uuid.UUID(base)).
		Where("compare_snapshot_id = ?", uuid.UUID(compare)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build comparison query: %w", err)
	}

	var (
		c            models.Comparison
		assessmentID uuid.UUID
		report       []byte
		summary      []byte
	)
	err = postgres.QuerierFromCtx(ctx, s.db).QueryRow(ctx, query, args...).
		Scan(&assessmentID, &report, &summary, &c.ComputedAt)
	if err != nil {
		return nil, postgres.MapError(err, "comparison", base.String()+"/"+compare.String())
	}
	if err := json.Unmarshal(report, &c.Report); err != nil {
		return nil, fmt.Errorf("decode comparison report: %w", err)
	}
	if err := json.Unmarshal(summary, &c.Summary); err != nil {
		return nil, fmt.Errorf("decode comparison summary: %w", err)
	}
	c.BaseSnapshotID = base
	c.CompareSnapshotID = compare
	c.AssessmentID = id.AssessmentID(assessmentID)
	return &c, nil
}

func (s *Store) Put(ctx context.Context, c *models.Comparison) error {
	report, err := json.Marshal(c.Report)
	if err != nil {
		return fmt.Errorf("encode comparison report: %w", err)
	}
	summary, err := json.Marshal(c.Summary)
	if err != nil {
		return fmt.Errorf("encode comparison summary: %w", err)
	}

	query, args, err := psql.
		Insert(table).
		Columns("base_snapshot_id", "compare_snapshot_id", "assessment_id", "report", "summary", "computed_at").
		Values(uuid.UUID(c.BaseSnapshotID), uuid.UUID(c.CompareSnapshotID), uuid.UUID(c.AssessmentID), report, summary, c.ComputedAt).
		Suffix("ON CONFLICT (base_snapshot_id, compare_snapshot_id) DO UPDATE SET " +
			"report = EXCLUDED.report, summary = EXCLUDED.summary, computed_at = EXCLUDED.computed_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build comparison upsert: %w", err)
	}
	_, err = postgres.QuerierFromCtx(ctx, s.db).Exec(ctx, query, args...)
	return postgres.MapError(err, "comparison", c.BaseSnapshotID.String()+"/"+c.CompareSnapshotID.String())
}
