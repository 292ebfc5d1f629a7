package comparison

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	assessment "fitgap/internal/assessment/models"
	assessmentstore "fitgap/internal/assessment/store/memory"
	"fitgap/internal/delta/comparison/store/memory"
	"fitgap/internal/delta/metrics"
	"fitgap/internal/delta/models"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
)

type ComparisonSuite struct {
	suite.Suite
	ctx       context.Context
	snapshots *assessmentstore.SnapshotStore
	cache     *countingStore
	metrics   *metrics.Metrics
	service   *Service

	assessmentID id.AssessmentID
	v1, v2       id.SnapshotID
}

// countingStore counts cache calls and can be made to fail.
type countingStore struct {
	Store
	gets, puts int
	getErr     error
	putErr     error
}

func (c *countingStore) Get(ctx context.Context, base, compare id.SnapshotID) (*models.Comparison, error) {
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.Store.Get(ctx, base, compare)
}

func (c *countingStore) Put(ctx context.Context, cmp *models.Comparison) error {
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	return c.Store.Put(ctx, cmp)
}

func TestComparisonSuite(t *testing.T) {
	suite.Run(t, new(ComparisonSuite))
}

func (s *ComparisonSuite) SetupTest() {
	s.ctx = context.Background()
	s.snapshots = assessmentstore.NewSnapshotStore()
	s.cache = &countingStore{Store: memory.NewInMemoryStore()}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.snapshots, s.cache, WithMetrics(s.metrics))

	s.assessmentID = id.AssessmentID(uuid.New())
	s.v1 = s.createSnapshot(s.assessmentID, 1, assessment.SnapshotData{
		ScopeSelections: []assessment.ScopeSelection{{ScopeItemID: "J58", Selected: true}},
	})
	s.v2 = s.createSnapshot(s.assessmentID, 2, assessment.SnapshotData{
		ScopeSelections: []assessment.ScopeSelection{
			{ScopeItemID: "J58", Selected: false},
			{ScopeItemID: "BD9", Selected: true},
		},
	})
}

func (s *ComparisonSuite) createSnapshot(assessmentID id.AssessmentID, version int, data assessment.SnapshotData) id.SnapshotID {
	snap := &assessment.Snapshot{
		ID:           id.SnapshotID(uuid.New()),
		AssessmentID: assessmentID,
		Version:      version,
		Data:         data,
		CreatedAt:    time.Now(),
	}
	s.Require().NoError(s.snapshots.Create(s.ctx, snap))
	return snap.ID
}

func (s *ComparisonSuite) TestCompare() {
	s.Run("computes and caches on first call", func() {
		result, err := s.service.Compare(s.ctx, s.v1, s.v2, false)
		s.Require().NoError(err)
		s.Equal(s.assessmentID, result.AssessmentID)
		s.Equal(1, result.Summary.AddedCount)
		s.Equal(1, result.Summary.ModifiedCount)
		s.Equal(1, s.cache.puts)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Computations))
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.CacheMisses))
	})

	s.Run("second call is served from cache", func() {
		_, err := s.service.Compare(s.ctx, s.v1, s.v2, false)
		s.Require().NoError(err)
		s.Equal(1, s.cache.puts)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Computations))
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.CacheHits))
	})

	s.Run("refresh recomputes without reading the cache", func() {
		gets := s.cache.gets
		_, err := s.service.Compare(s.ctx, s.v1, s.v2, true)
		s.Require().NoError(err)
		s.Equal(gets, s.cache.gets)
		s.Equal(2, s.cache.puts)
		s.Equal(float64(2), testutil.ToFloat64(s.metrics.Computations))
	})

	s.Run("reverse direction is a separate comparison", func() {
		result, err := s.service.Compare(s.ctx, s.v2, s.v1, false)
		s.Require().NoError(err)
		s.Equal(1, result.Summary.RemovedCount)
		s.Zero(result.Summary.AddedCount)
	})
}

func (s *ComparisonSuite) TestCompareErrors() {
	s.Run("missing snapshot is not found", func() {
		_, err := s.service.Compare(s.ctx, s.v1, id.SnapshotID(uuid.New()), false)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("snapshots of different assessments are rejected", func() {
		other := s.createSnapshot(id.AssessmentID(uuid.New()), 1, assessment.SnapshotData{})
		_, err := s.service.Compare(s.ctx, s.v1, other, false)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ComparisonSuite) TestCacheFailuresAreNotFatal() {
	s.cache.getErr = errors.New("cache down")
	s.cache.putErr = errors.New("cache down")

	result, err := s.service.Compare(s.ctx, s.v1, s.v2, false)
	s.Require().NoError(err)
	s.Equal(2, result.Summary.TotalChanges)
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.CacheFailures))
}
