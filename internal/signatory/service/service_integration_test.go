//go:build integration

package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	assessment "fitgap/internal/assessment/models"
	assessmentstore "fitgap/internal/assessment/store/postgres"
	dlmodels "fitgap/internal/decisionlog/models"
	dlservice "fitgap/internal/decisionlog/service"
	dlstore "fitgap/internal/decisionlog/store/postgres"
	"fitgap/internal/platform/postgres"
	"fitgap/internal/signatory/models"
	"fitgap/internal/signatory/service"
	signatorystore "fitgap/internal/signatory/store/postgres"
	id "fitgap/pkg/domain"
	"fitgap/pkg/requestcontext"
	"fitgap/pkg/testutil/containers"
)

type SignatoryPostgresSuite struct {
	suite.Suite
	postgres    *containers.PostgresContainer
	assessments *assessmentstore.AssessmentStore
	ledger      *dlservice.Service
	service     *service.Service

	assessmentID id.AssessmentID
}

func TestSignatoryPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SignatoryPostgresSuite))
}

func (s *SignatoryPostgresSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
}

func (s *SignatoryPostgresSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx,
		"decision_log_entries", "assessment_signatories", "assessments",
	))

	db := s.postgres.DB
	s.assessments = assessmentstore.NewAssessmentStore(db)
	s.ledger = dlservice.New(dlstore.New(db))
	s.service = service.New(signatorystore.New(db), s.assessments, s.ledger, postgres.NewTxManager(db))

	now := time.Now().UTC().Truncate(time.Microsecond)
	a := &assessment.Assessment{
		ID:        id.AssessmentID(uuid.New()),
		Name:      "Finance rollout",
		Status:    assessment.StatusCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.assessments.Save(ctx, a))
	s.assessmentID = a.ID
}

func signer(role models.Role) context.Context {
	return requestcontext.WithActor(context.Background(), requestcontext.ActorInfo{
		ID:    id.UserID(uuid.New()),
		Email: string(role) + "@example.com",
		Role:  "consultant",
	})
}

func (s *SignatoryPostgresSuite) record(role models.Role) error {
	_, err := s.service.Record(signer(role), s.assessmentID, models.RecordRequest{Role: role, SignerName: "Jo Doe"})
	return err
}

func (s *SignatoryPostgresSuite) TestConcurrentFinalSignatoriesCompleteRoster() {
	s.Require().NoError(s.record(models.RoleClientRepresentative))

	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, role := range []models.Role{models.RoleConsultant, models.RoleProgramManager} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s.NoError(s.record(role))
		}()
	}
	close(start)
	wg.Wait()

	a, err := s.assessments.FindByID(context.Background(), s.assessmentID)
	s.Require().NoError(err)
	s.Equal(assessment.StatusSignedOff, a.Status)

	page, err := s.ledger.Query(context.Background(), s.assessmentID, dlmodels.Filter{}, "", 0)
	s.Require().NoError(err)
	s.Require().Len(page.Entries, 3)
	s.Equal(dlmodels.ActionAssessmentSignedOff, page.Entries[0].Action)
	s.Equal(dlmodels.ActionSignatoryRecorded, page.Entries[1].Action)
}

func (s *SignatoryPostgresSuite) TestDuplicateRoleIsRejected() {
	s.Require().NoError(s.record(models.RoleConsultant))
	s.Error(s.record(models.RoleConsultant))

	roster, err := s.service.Roster(context.Background(), s.assessmentID)
	s.Require().NoError(err)
	s.Len(roster.Signatories, 1)
}
