// Package service is the sign-off orchestrator. Every operation runs its
// guard check, its mutations and exactly one decision log entry inside one
// transaction, so the ledger never diverges from process state.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	assessment "fitgap/internal/assessment/models"
	dlmodels "fitgap/internal/decisionlog/models"
	"fitgap/internal/signoff/metrics"
	"fitgap/internal/signoff/models"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	"fitgap/pkg/platform/sentinel"
	normalize "fitgap/pkg/platform/strings"
	txcontext "fitgap/pkg/platform/tx"
)

var tracer = otel.Tracer("fitgap/signoff")

// ProcessStore persists sign-off processes.
type ProcessStore interface {
	// Create fails with sentinel.ErrConflict when the assessment already has a process.
	Create(ctx context.Context, p *models.Process) error
	FindByID(ctx context.Context, signOffID id.SignOffID) (*models.Process, error)
	// FindByIDForUpdate locks the process row until the transaction ends.
	FindByIDForUpdate(ctx context.Context, signOffID id.SignOffID) (*models.Process, error)
	FindByAssessment(ctx context.Context, assessmentID id.AssessmentID) (*models.Process, error)
	// UpdateStatus writes p only if the stored status still equals from,
	// otherwise it returns sentinel.ErrConflict.
	UpdateStatus(ctx context.Context, p *models.Process, from models.Status) error
}

// AreaValidationStore keeps the latest validation per functional area.
type AreaValidationStore interface {
	// Upsert replaces any existing row for (SignOffID, FunctionalArea) and
	// returns the stored row.
	Upsert(ctx context.Context, v *models.AreaValidation) (*models.AreaValidation, error)
	ListBySignOff(ctx context.Context, signOffID id.SignOffID) ([]*models.AreaValidation, error)
}

// SignatureStore keeps at most one signature per (process, type).
type SignatureStore interface {
	// CreateIfAbsent fails with sentinel.ErrConflict when a record of the
	// same type already exists for the process.
	CreateIfAbsent(ctx context.Context, r *models.SignatureRecord) error
	FindByType(ctx context.Context, signOffID id.SignOffID, t models.SignatureType) (*models.SignatureRecord, error)
	ListBySignOff(ctx context.Context, signOffID id.SignOffID) ([]*models.SignatureRecord, error)
}

type AssessmentReader interface {
	FindByID(ctx context.Context, assessmentID id.AssessmentID) (*assessment.Assessment, error)
}

type SnapshotReader interface {
	FindByID(ctx context.Context, snapshotID id.SnapshotID) (*assessment.Snapshot, error)
}

// DecisionLog is the ledger every operation appends to.
type DecisionLog interface {
	Append(ctx context.Context, entry *dlmodels.Entry) error
}

// Config holds the policy knobs of the orchestrator.
type Config struct {
	// RequiredAreas must all be APPROVED before executive sign-off opens.
	RequiredAreas []string
	// InitiationStatuses are the assessment statuses that allow start.
	InitiationStatuses []assessment.Status
	// AuthorityMinLength is the minimum length of an authority statement.
	AuthorityMinLength int
}

// Service orchestrates area validation, executive attestation and partner
// countersignature.
type Service struct {
	processes   ProcessStore
	areas       AreaValidationStore
	signatures  SignatureStore
	assessments AssessmentReader
	snapshots   SnapshotReader
	ledger      DecisionLog
	tx          txcontext.Runner
	cfg         Config

	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	tokenCost int
}

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

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithTokenCost sets the bcrypt cost for verification tokens.
func WithTokenCost(cost int) Option {
	return func(s *Service) {
		s.tokenCost = cost
	}
}

// Stores groups the persistence dependencies of the orchestrator.
type Stores struct {
	Processes   ProcessStore
	Areas       AreaValidationStore
	Signatures  SignatureStore
	Assessments AssessmentReader
	Snapshots   SnapshotReader
}

func New(stores Stores, ledger DecisionLog, tx txcontext.Runner, cfg Config, opts ...Option) (*Service, error) {
	cfg.RequiredAreas = normalize.KeyList(cfg.RequiredAreas)
	switch {
	case stores.Processes == nil || stores.Areas == nil || stores.Signatures == nil:
		return nil, errors.New("sign-off stores are required")
	case stores.Assessments == nil || stores.Snapshots == nil:
		return nil, errors.New("assessment and snapshot readers are required")
	case ledger == nil:
		return nil, errors.New("decision log is required")
	case tx == nil:
		return nil, errors.New("transaction runner is required")
	case len(cfg.RequiredAreas) == 0:
		return nil, errors.New("at least one required area must be configured")
	case len(cfg.InitiationStatuses) == 0:
		return nil, errors.New("at least one initiation status must be configured")
	}

	s := &Service{
		processes:   stores.Processes,
		areas:       stores.Areas,
		signatures:  stores.Signatures,
		assessments: stores.Assessments,
		snapshots:   stores.Snapshots,
		ledger:      ledger,
		tx:          tx,
		cfg:         cfg,
		logger:      slog.Default(),
		now:         time.Now,
		tokenCost:   bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// isRequiredArea reports whether area is one of the configured areas.
func (s *Service) isRequiredArea(area string) bool {
	return slices.Contains(s.cfg.RequiredAreas, area)
}

// startSpan opens a span and returns a finish func that records the outcome
// in the span and in metrics.
func (s *Service) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := tracer.Start(ctx, "signoff."+operation, trace.WithAttributes(attrs...))
	start := time.Now()
	return ctx, func(errp *error) {
		defer span.End()
		if s.metrics != nil {
			s.metrics.ObserveDuration(operation, time.Since(start).Seconds())
		}
		if errp == nil || *errp == nil {
			return
		}
		err := *errp
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, string(dErrors.CodeOf(err)))
		if s.metrics != nil {
			s.metrics.IncFailure(operation, string(dErrors.CodeOf(err)))
		}
	}
}

// recordTransition counts the status change after the transaction commits.
func (s *Service) recordTransition(ctx context.Context, from, to models.Status) {
	if s.metrics == nil || from == to {
		return
	}
	txcontext.AfterCommit(ctx, func(context.Context) {
		s.metrics.IncTransition(string(to))
		if to.IsTerminal() {
			s.metrics.DecActive()
		}
	})
}

// loadForUpdate locks the process for the rest of the transaction.
func (s *Service) loadForUpdate(ctx context.Context, signOffID id.SignOffID) (*models.Process, error) {
	p, err := s.processes.FindByIDForUpdate(ctx, signOffID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "sign-off not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sign-off")
	}
	return p, nil
}

// saveStatus applies the compare-and-swap write. A lost race surfaces as
// Conflict.
func (s *Service) saveStatus(ctx context.Context, p *models.Process, from models.Status) error {
	if err := s.processes.UpdateStatus(ctx, p, from); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return dErrors.New(dErrors.CodeConflict, "sign-off was modified concurrently")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "sign-off not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update sign-off")
	}
	return nil
}

func (s *Service) loadSnapshot(ctx context.Context, snapshotID id.SnapshotID) (*assessment.Snapshot, error) {
	snap, err := s.snapshots.FindByID(ctx, snapshotID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "snapshot not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load snapshot")
	}
	return snap, nil
}
