// Package postgres stores decision log entries in an append-only table. A
// trigger rejects UPDATE and DELETE, so this type exposes inserts and reads only.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"fitgap/internal/decisionlog/models"
	"fitgap/internal/platform/postgres"
	id "fitgap/pkg/domain"
)

const table = "decision_log_entries"

var columns = []string{
	"id", "assessment_id", "entity_type", "entity_id", "action",
	"old_value", "new_value", "actor_id", "actor_email", "actor_role",
	"reason", "occurred_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Store struct {
	db postgres.Querier
}

func New(db postgres.Querier) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, entry *models.Entry) error {
	oldValue, err := marshalValue(entry.OldValue)
	if err != nil {
		return fmt.Errorf("marshal old value: %w", err)
	}
	newValue, err := marshalValue(entry.NewValue)
	if err != nil {
		return fmt.Errorf("marshal new value: %w", err)
	}
	var reason *string
	if entry.Reason != "" {
		reason = &entry.Reason
	}

	query, args, err := psql.Insert(table).Columns(columns...).Values(
		uuid.UUID(entry.ID),
		uuid.UUID(entry.AssessmentID),
		string(entry.EntityType),
		entry.EntityID,
		string(entry.Action),
		oldValue,
		newValue,
		uuid.UUID(entry.ActorID),
		entry.ActorEmail,
		entry.ActorRole,
		reason,
		entry.Timestamp,
	).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, s.db).Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "decision log entry", entry.ID)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, entryID id.EntryID) (*models.Entry, error) {
	query, args, err := psql.Select(columns...).From(table).Where("id = ?", uuid.UUID(entryID)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	entry, err := scanEntry(postgres.QuerierFromCtx(ctx, s.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "decision log entry", entryID)
	}
	return entry, nil
}

// List orders by (occurred_at, id) descending; the cursor is resolved inside
// the query so a page boundary is a single row comparison.
func (s *Store) List(ctx context.Context, params models.ListParams) ([]*models.Entry, error) {
	qb := psql.Select(columns...).
		From(table).
		Where("assessment_id = ?", uuid.UUID(params.AssessmentID))

	if params.Filter.EntityType != "" {
		qb = qb.Where("entity_type = ?", string(params.Filter.EntityType))
	}
	if !params.Filter.ActorID.IsNil() {
		qb = qb.Where("actor_id = ?", uuid.UUID(params.Filter.ActorID))
	}
	if params.Cursor != nil {
		qb = qb.Where("(occurred_at, id) < (SELECT c.occurred_at, c.id FROM "+table+" c WHERE c.id = ?)", uuid.UUID(*params.Cursor))
	}
	qb = qb.OrderBy("occurred_at DESC", "id DESC").Limit(uint64(params.Limit))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, s.db).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "decision log", params.AssessmentID)
	}
	defer rows.Close()

	out := make([]*models.Entry, 0, params.Limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision log entry: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision log: %w", err)
	}
	return out, nil
}

func scanEntry(row pgx.Row) (*models.Entry, error) {
	var (
		entryID, assessmentID, actorID uuid.UUID
		entityType, action             string
		oldValue, newValue             []byte
		reason                         *string
		e                              models.Entry
		occurredAt                     time.Time
	)
	if err := row.Scan(
		&entryID, &assessmentID, &entityType, &e.EntityID, &action,
		&oldValue, &newValue, &actorID, &e.ActorEmail, &e.ActorRole,
		&reason, &occurredAt,
	); err != nil {
		return nil, err
	}
	e.ID = id.EntryID(entryID)
	e.AssessmentID = id.AssessmentID(assessmentID)
	e.ActorID = id.UserID(actorID)
	e.EntityType = models.EntityType(entityType)
	e.Action = models.Action(action)
	e.Timestamp = occurredAt.UTC()
	if reason != nil {
		e.Reason = *reason
	}
	if err := unmarshalValue(oldValue, &e.OldValue); err != nil {
		return nil, err
	}
	if err := unmarshalValue(newValue, &e.NewValue); err != nil {
		return nil, err
	}
	return &e, nil
}

func marshalValue(v map[string]any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalValue(raw []byte, dst *map[string]any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode ledger value: %w", err)
	}
	return nil
}
