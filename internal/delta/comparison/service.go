// Package comparison serves delta reports between two snapshots, backed by a
// recomputable cache.
package comparison

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	assessment "fitgap/internal/assessment/models"
	"fitgap/internal/delta"
	"fitgap/internal/delta/metrics"
	"fitgap/internal/delta/models"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	"fitgap/pkg/platform/sentinel"
)

var tracer = otel.Tracer("fitgap/delta/comparison")

// SnapshotReader loads immutable snapshots.
type SnapshotReader interface {
	FindByID(ctx context.Context, snapshotID id.SnapshotID) (*assessment.Snapshot, error)
}

// Store caches computed comparisons. Get returns sentinel.ErrNotFound on a miss.
type Store interface {
	Get(ctx context.Context, base, compare id.SnapshotID) (*models.Comparison, error)
	Put(ctx context.Context, c *models.Comparison) error
}

type Service struct {
	snapshots SnapshotReader
	cache     Store
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
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

func New(snapshots SnapshotReader, cache Store, opts ...Option) *Service {
	s := &Service{
		snapshots: snapshots,
		cache:     cache,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compare returns the delta from base to compare. A cached result is used
// unless refresh is set. Both snapshots must belong to the same assessment.
func (s *Service) Compare(ctx context.Context, baseID, compareID id.SnapshotID, refresh bool) (*models.Comparison, error) {
	ctx, span := tracer.Start(ctx, "comparison.Compare")
	defer span.End()
	span.SetAttributes(
		attribute.String("snapshot.base", baseID.String()),
		attribute.String("snapshot.compare", compareID.String()),
		attribute.Bool("refresh", refresh),
	)

	base, compare, err := s.loadPair(ctx, baseID, compareID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "load snapshots")
		return nil, err
	}
	if base.AssessmentID != compare.AssessmentID {
		return nil, dErrors.New(dErrors.CodeValidation, "snapshots belong to different assessments")
	}

	if !refresh {
		if cached, ok := s.cached(ctx, baseID, compareID); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	start := time.Now()
	report := delta.ComputeReport(base.Data, compare.Data)
	result := &models.Comparison{
		BaseSnapshotID:    baseID,
		CompareSnapshotID: compareID,
		AssessmentID:      base.AssessmentID,
		Report:            report,
		Summary:           delta.ComputeSummary(report),
		ComputedAt:        s.now().UTC(),
	}
	if s.metrics != nil {
		s.metrics.IncComputations()
		s.metrics.ObserveComputeDuration(time.Since(start).Seconds())
	}
	span.SetAttributes(attribute.Int("delta.total_changes", result.Summary.TotalChanges))

	if err := s.cache.Put(ctx, result); err != nil {
		s.logger.WarnContext(ctx, "failed to cache comparison",
			"base_snapshot_id", baseID.String(),
			"compare_snapshot_id", compareID.String(),
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncCacheFailures()
		}
	}
	return result, nil
}

func (s *Service) loadPair(ctx context.Context, baseID, compareID id.SnapshotID) (*assessment.Snapshot, *assessment.Snapshot, error) {
	var base, compare *assessment.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		base, err = s.loadSnapshot(gctx, baseID, "base")
		return err
	})
	g.Go(func() error {
		var err error
		compare, err = s.loadSnapshot(gctx, compareID, "compare")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return base, compare, nil
}

func (s *Service) loadSnapshot(ctx context.Context, snapshotID id.SnapshotID, which string) (*assessment.Snapshot, error) {
	snap, err := s.snapshots.FindByID(ctx, snapshotID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, which+" snapshot not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+which+" snapshot")
	}
	return snap, nil
}

// cached treats any cache failure as a miss.
func (s *Service) cached(ctx context.Context, baseID, compareID id.SnapshotID) (*models.Comparison, bool) {
	c, err := s.cache.Get(ctx, baseID, compareID)
	switch {
	case err == nil:
		if s.metrics != nil {
			s.metrics.IncCacheHits()
		}
		return c, true
	case errors.Is(err, sentinel.ErrNotFound):
		if s.metrics != nil {
			s.metrics.IncCacheMisses()
		}
	default:
		s.logger.WarnContext(ctx, "comparison cache read failed",
			"base_snapshot_id", baseID.String(),
			"compare_snapshot_id", compareID.String(),
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncCacheFailures()
		}
	}
	return nil, false
}
