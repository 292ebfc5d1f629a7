// Package service implements the append-only decision log: one write primitive
// (Append) and one cursor-paginated read (Query). There is no update or delete.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"fitgap/internal/decisionlog/metrics"
	"fitgap/internal/decisionlog/models"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	"fitgap/pkg/platform/sentinel"
	txcontext "fitgap/pkg/platform/tx"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Store persists ledger entries. Implementations must never expose mutation
// of an appended entry.
type Store interface {
	Append(ctx context.Context, entry *models.Entry) error
	FindByID(ctx context.Context, entryID id.EntryID) (*models.Entry, error)
	// List returns at most params.Limit entries, newest first, strictly older
	// than params.Cursor when it is set.
	List(ctx context.Context, params models.ListParams) ([]*models.Entry, error)
}

// Publisher fans committed entries out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, entry *models.Entry) error
}

// Service is the decision log.
type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	clockMu sync.Mutex
	last    time.Time
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublisher enables post-commit fan-out of appended entries.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append validates and persists entry, assigning its ID and server timestamp.
// Failures are returned to the caller, which must abort its operation: a
// committed transition without its ledger entry is an integrity violation.
func (s *Service) Append(ctx context.Context, entry *models.Entry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	start := time.Now()

	entry.ID = id.NewEntryID()
	entry.Timestamp = s.nextTimestamp()

	if err := s.store.Append(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.IncAppendFailures()
		}
		s.logger.ErrorContext(ctx, "CRITICAL: decision log append failed",
			"assessment_id", entry.AssessmentID,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"action", entry.Action,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "decision log append failed")
	}

	if s.metrics != nil {
		s.metrics.IncAppended(string(entry.Action))
		s.metrics.ObserveAppendDuration(time.Since(start).Seconds())
	}

	if s.publisher != nil {
		committed := *entry
		txcontext.AfterCommit(ctx, func(ctx context.Context) {
			s.publish(ctx, &committed)
		})
	}
	return nil
}

// publish runs after commit; the row is already durable so failures are
// reported, never propagated.
func (s *Service) publish(ctx context.Context, entry *models.Entry) {
	if err := s.publisher.Publish(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.IncStreamFailures()
		}
		s.logger.WarnContext(ctx, "decision log stream publish failed",
			"entry_id", entry.ID,
			"assessment_id", entry.AssessmentID,
			"error", err,
		)
		return
	}
	if s.metrics != nil {
		s.metrics.IncStreamPublished()
	}
}

// Query returns one page of an assessment's ledger, newest first. cursor is
// the ID of the last entry of the previous page.
func (s *Service) Query(ctx context.Context, assessmentID id.AssessmentID, filter models.Filter, cursor string, limit int) (*models.Page, error) {
	if assessmentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "assessment ID is required")
	}
	if filter.EntityType != "" && !filter.EntityType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown entity type "+string(filter.EntityType))
	}
	switch {
	case limit < 0:
		return nil, dErrors.New(dErrors.CodeValidation, "limit must not be negative")
	case limit == 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	params := models.ListParams{
		AssessmentID: assessmentID,
		Filter:       filter,
		Limit:        limit + 1,
	}
	if cursor != "" {
		cursorID, err := id.ParseEntryID(cursor)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid cursor")
		}
		anchor, err := s.store.FindByID(ctx, cursorID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "cursor entry not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve cursor")
		}
		if anchor.AssessmentID != assessmentID {
			return nil, dErrors.New(dErrors.CodeNotFound, "cursor entry not found")
		}
		params.Cursor = &cursorID
	}

	entries, err := s.store.List(ctx, params)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query decision log")
	}

	page := &models.Page{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		page.HasMore = true
		page.NextCursor = page.Entries[limit-1].ID.String()
	}
	if page.Entries == nil {
		page.Entries = []*models.Entry{}
	}
	return page, nil
}

// nextTimestamp returns a strictly increasing UTC timestamp at microsecond
// precision, matching Postgres timestamptz, so timestamps totally order the
// entries written by this process.
func (s *Service) nextTimestamp() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	ts := s.now().UTC().Truncate(time.Microsecond)
	if !ts.After(s.last) {
		ts = s.last.Add(time.Microsecond)
	}
	s.last = ts
	return ts
}

func validateEntry(e *models.Entry) error {
	switch {
	case e == nil:
		return dErrors.New(dErrors.CodeValidation, "entry is required")
	case e.AssessmentID.IsNil():
		return dErrors.New(dErrors.CodeValidation, "entry assessment ID is required")
	case !e.EntityType.IsValid():
		return dErrors.New(dErrors.CodeValidation, "entry entity type is invalid")
	case e.EntityID == "":
		return dErrors.New(dErrors.CodeValidation, "entry entity ID is required")
	case !e.Action.IsValid():
		return dErrors.New(dErrors.CodeValidation, "entry action is invalid")
	case e.NewValue == nil:
		return dErrors.New(dErrors.CodeValidation, "entry new value is required")
	case e.ActorID.IsNil():
		return dErrors.New(dErrors.CodeValidation, "entry actor is required")
	}
	return nil
}
