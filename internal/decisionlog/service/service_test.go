package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fitgap/internal/decisionlog/models"
	"fitgap/internal/decisionlog/store/memory"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	txcontext "fitgap/pkg/platform/tx"
)

type failingStore struct {
	*memory.InMemoryStore
	err error
}

func (f *failingStore) Append(ctx context.Context, e *models.Entry) error {
	if f.err != nil {
		return f.err
	}
	return f.InMemoryStore.Append(ctx, e)
}

type recordingPublisher struct {
	published []*models.Entry
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, e *models.Entry) error {
	p.published = append(p.published, e)
	return p.err
}

type DecisionLogSuite struct {
	suite.Suite
	ctx          context.Context
	store        *memory.InMemoryStore
	service      *Service
	assessmentID id.AssessmentID
	actor        id.UserID
}

func TestDecisionLogSuite(t *testing.T) {
	suite.Run(t, new(DecisionLogSuite))
}

func (s *DecisionLogSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewInMemoryStore()
	fixed := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	s.service = New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixed }),
	)
	s.assessmentID = id.AssessmentID(uuid.New())
	s.actor = id.UserID(uuid.New())
}

func (s *DecisionLogSuite) entry(entityType models.EntityType, actor id.UserID) *models.Entry {
	return &models.Entry{
		AssessmentID: s.assessmentID,
		EntityType:   entityType,
		EntityID:     uuid.NewString(),
		Action:       models.ActionAreaValidationSubmitted,
		NewValue:     map[string]any{"status": "APPROVED"},
		ActorID:      actor,
		ActorEmail:   "actor@example.com",
		ActorRole:    "validator",
	}
}

func (s *DecisionLogSuite) appendN(n int) []*models.Entry {
	out := make([]*models.Entry, 0, n)
	for i := 0; i < n; i++ {
		e := s.entry(models.EntityAreaValidation, s.actor)
		s.Require().NoError(s.service.Append(s.ctx, e))
		out = append(out, e)
	}
	return out
}

func (s *DecisionLogSuite) TestAppend() {
	s.Run("assigns id and strictly increasing timestamps under a frozen clock", func() {
		entries := s.appendN(3)
		for i, e := range entries {
			s.False(e.ID.IsNil())
			if i > 0 {
				s.True(e.Timestamp.After(entries[i-1].Timestamp))
			}
		}
	})

	s.Run("rejects entries missing required fields", func() {
		e := s.entry(models.EntitySignOff, s.actor)
		e.Action = "DELETED"
		err := s.service.Append(s.ctx, e)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		e = s.entry(models.EntitySignOff, id.UserID{})
		err = s.service.Append(s.ctx, e)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects entity types and actions outside the workflow", func() {
		e := s.entry(models.EntityType("SNAPSHOT"), s.actor)
		s.True(dErrors.HasCode(s.service.Append(s.ctx, e), dErrors.CodeValidation))

		e = s.entry(models.EntitySignOff, s.actor)
		e.Action = "SNAPSHOT_CREATED"
		s.True(dErrors.HasCode(s.service.Append(s.ctx, e), dErrors.CodeValidation))
	})

	s.Run("store failures propagate", func() {
		svc := New(&failingStore{InMemoryStore: s.store, err: errors.New("disk full")},
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		err := svc.Append(s.ctx, s.entry(models.EntitySignOff, s.actor))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.ErrorContains(err, "disk full")
	})
}

func (s *DecisionLogSuite) TestPublishing() {
	s.Run("publishes only after commit", func() {
		pub := &recordingPublisher{}
		svc := New(s.store, WithPublisher(pub))
		runner := txcontext.NewMemoryRunner()

		err := runner.RunInTx(s.ctx, func(ctx context.Context) error {
			s.Require().NoError(svc.Append(ctx, s.entry(models.EntitySignOff, s.actor)))
			s.Empty(pub.published, "nothing is published inside the transaction")
			return nil
		})
		s.Require().NoError(err)
		s.Len(pub.published, 1)
	})

	s.Run("rolled back entries are never published nor stored", func() {
		pub := &recordingPublisher{}
		svc := New(memory.NewInMemoryStore(), WithPublisher(pub))
		runner := txcontext.NewMemoryRunner()

		_ = runner.RunInTx(s.ctx, func(ctx context.Context) error {
			s.Require().NoError(svc.Append(ctx, s.entry(models.EntitySignOff, s.actor)))
			return errors.New("mutation failed")
		})
		s.Empty(pub.published)

		page, err := svc.Query(s.ctx, s.assessmentID, models.Filter{}, "", 10)
		s.Require().NoError(err)
		s.Empty(page.Entries)
	})

	s.Run("publish failure does not fail the append", func() {
		pub := &recordingPublisher{err: errors.New("broker down")}
		svc := New(s.store, WithPublisher(pub), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		s.NoError(svc.Append(s.ctx, s.entry(models.EntitySignOff, s.actor)))
		s.Len(pub.published, 1)
	})
}

func (s *DecisionLogSuite) TestQueryPagination() {
	const n = 7
	appended := s.appendN(n)

	for _, k := range []int{1, 2, 3, 7, 10} {
		pages := 0
		cursor := ""
		var seen []*models.Entry
		for {
			page, err := s.service.Query(s.ctx, s.assessmentID, models.Filter{}, cursor, k)
			s.Require().NoError(err)
			pages++
			seen = append(seen, page.Entries...)
			if !page.HasMore {
				s.Empty(page.NextCursor)
				break
			}
			s.Require().Len(page.Entries, k)
			cursor = page.NextCursor
		}

		s.Equal((n+k-1)/k, pages, "limit %d", k)
		s.Require().Len(seen, n, "limit %d", k)
		for i, e := range seen {
			s.Equal(appended[n-1-i].ID, e.ID, "newest first without gaps (limit %d)", k)
		}
	}
}

func (s *DecisionLogSuite) TestQueryFilters() {
	other := id.UserID(uuid.New())
	s.Require().NoError(s.service.Append(s.ctx, s.entry(models.EntitySignOff, s.actor)))
	s.Require().NoError(s.service.Append(s.ctx, s.entry(models.EntityAreaValidation, other)))
	s.Require().NoError(s.service.Append(s.ctx, s.entry(models.EntityAreaValidation, s.actor)))

	s.Run("by entity type", func() {
		page, err := s.service.Query(s.ctx, s.assessmentID, models.Filter{EntityType: models.EntityAreaValidation}, "", 0)
		s.Require().NoError(err)
		s.Len(page.Entries, 2)
	})

	s.Run("by actor", func() {
		page, err := s.service.Query(s.ctx, s.assessmentID, models.Filter{ActorID: other}, "", 0)
		s.Require().NoError(err)
		s.Require().Len(page.Entries, 1)
		s.Equal(other, page.Entries[0].ActorID)
	})

	s.Run("other assessments are invisible", func() {
		page, err := s.service.Query(s.ctx, id.AssessmentID(uuid.New()), models.Filter{}, "", 0)
		s.Require().NoError(err)
		s.Empty(page.Entries)
	})
}

func (s *DecisionLogSuite) TestQueryErrors() {
	s.Run("unknown cursor is not found", func() {
		_, err := s.service.Query(s.ctx, s.assessmentID, models.Filter{}, id.NewEntryID().String(), 5)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("malformed cursor is a validation error", func() {
		_, err := s.service.Query(s.ctx, s.assessmentID, models.Filter{}, "nope", 5)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("cursor from another assessment is not found", func() {
		foreign := s.entry(models.EntitySignOff, s.actor)
		foreign.AssessmentID = id.AssessmentID(uuid.New())
		s.Require().NoError(s.service.Append(s.ctx, foreign))

		_, err := s.service.Query(s.ctx, s.assessmentID, models.Filter{}, foreign.ID.String(), 5)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("negative limit is rejected", func() {
		_, err := s.service.Query(s.ctx, s.assessmentID, models.Filter{}, "", -1)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
