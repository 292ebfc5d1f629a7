package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	assessment "fitgap/internal/assessment/models"
	assessmentstore "fitgap/internal/assessment/store/memory"
	dlmodels "fitgap/internal/decisionlog/models"
	dlservice "fitgap/internal/decisionlog/service"
	dlstore "fitgap/internal/decisionlog/store/memory"
	"fitgap/internal/signatory/models"
	"fitgap/internal/signatory/store/memory"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	txcontext "fitgap/pkg/platform/tx"
	"fitgap/pkg/requestcontext"
)

type brokenLedger struct{}

func (brokenLedger) Append(context.Context, *dlmodels.Entry) error {
	return errors.New("ledger unavailable")
}

type SignatorySuite struct {
	suite.Suite
	assessments  *assessmentstore.AssessmentStore
	store        *memory.InMemoryStore
	ledger       *dlservice.Service
	service      *Service
	assessmentID id.AssessmentID
}

func TestSignatorySuite(t *testing.T) {
	suite.Run(t, new(SignatorySuite))
}

func (s *SignatorySuite) SetupTest() {
	s.assessments = assessmentstore.NewAssessmentStore()
	s.store = memory.NewInMemoryStore()
	s.ledger = dlservice.New(dlstore.NewInMemoryStore())
	s.service = New(s.store, s.assessments, s.ledger, txcontext.NewMemoryRunner())

	now := time.Now().UTC()
	s.assessmentID = id.AssessmentID(uuid.New())
	s.Require().NoError(s.assessments.Save(context.Background(), &assessment.Assessment{
		ID: s.assessmentID, Name: "Rollout", Status: assessment.StatusCompleted, CreatedAt: now, UpdatedAt: now,
	}))
}

func asUser(role string) context.Context {
	return requestcontext.WithActor(context.Background(), requestcontext.ActorInfo{
		ID: id.UserID(uuid.New()), Email: role + "@example.com", Role: role,
	})
}

func (s *SignatorySuite) record(role models.Role) (*models.Roster, error) {
	return s.service.Record(asUser("consultant"), s.assessmentID, models.RecordRequest{Role: role, SignerName: "Jo Doe"})
}

func (s *SignatorySuite) assessmentStatus() assessment.Status {
	a, err := s.assessments.FindByID(context.Background(), s.assessmentID)
	s.Require().NoError(err)
	return a.Status
}

func (s *SignatorySuite) TestRoster() {
	s.Run("partial roster leaves the assessment untouched", func() {
		roster, err := s.record(models.RoleConsultant)
		s.Require().NoError(err)
		s.False(roster.Complete)
		s.ElementsMatch([]models.Role{models.RoleClientRepresentative, models.RoleProgramManager}, roster.Missing)
		s.Equal(assessment.StatusCompleted, s.assessmentStatus())
	})

	s.Run("duplicate role is a conflict", func() {
		_, err := s.record(models.RoleConsultant)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict), err)
	})

	s.Run("third role signs off the assessment", func() {
		_, err := s.record(models.RoleProgramManager)
		s.Require().NoError(err)
		roster, err := s.record(models.RoleClientRepresentative)
		s.Require().NoError(err)
		s.True(roster.Complete)
		s.Empty(roster.Missing)
		s.Len(roster.Signatories, 3)
		s.Equal(assessment.StatusSignedOff, s.assessmentStatus())
	})

	s.Run("one ledger entry per recording", func() {
		page, err := s.ledger.Query(context.Background(), s.assessmentID, dlmodels.Filter{}, "", 0)
		s.Require().NoError(err)
		s.Require().Len(page.Entries, 3)
		s.Equal(dlmodels.ActionAssessmentSignedOff, page.Entries[0].Action)
		s.Equal(dlmodels.ActionSignatoryRecorded, page.Entries[1].Action)
	})
}

func (s *SignatorySuite) TestRecordErrors() {
	s.Run("unknown role", func() {
		_, err := s.record(models.Role("sponsor"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), err)
	})

	s.Run("missing assessment", func() {
		_, err := s.service.Record(asUser("consultant"), id.AssessmentID(uuid.New()),
			models.RecordRequest{Role: models.RoleConsultant, SignerName: "Jo"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound), err)
	})

	s.Run("anonymous caller", func() {
		_, err := s.service.Record(context.Background(), s.assessmentID,
			models.RecordRequest{Role: models.RoleConsultant, SignerName: "Jo"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), err)
	})

	s.Run("ledger failure rolls the signatory back", func() {
		broken := New(s.store, s.assessments, brokenLedger{}, txcontext.NewMemoryRunner())
		_, err := broken.Record(asUser("consultant"), s.assessmentID,
			models.RecordRequest{Role: models.RoleConsultant, SignerName: "Jo"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal), err)

		roster, err := s.service.Roster(context.Background(), s.assessmentID)
		s.Require().NoError(err)
		s.Empty(roster.Signatories)
	})
}

func (s *SignatorySuite) TestConcurrentFinalSignatoriesCompleteRoster() {
	_, err := s.record(models.RoleClientRepresentative)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for _, role := range []models.Role{models.RoleConsultant, models.RoleProgramManager} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.record(role)
			s.NoError(err)
		}()
	}
	wg.Wait()

	s.Equal(assessment.StatusSignedOff, s.assessmentStatus())
	page, err := s.ledger.Query(context.Background(), s.assessmentID,
		dlmodels.Filter{}, "", 0)
	s.Require().NoError(err)
	s.Require().Len(page.Entries, 3)
	s.Equal(dlmodels.ActionAssessmentSignedOff, page.Entries[0].Action)
}
