package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	assessment "fitgap/internal/assessment/models"
	assessmentstore "fitgap/internal/assessment/store/memory"
	dlmodels "fitgap/internal/decisionlog/models"
	dlservice "fitgap/internal/decisionlog/service"
	dlstore "fitgap/internal/decisionlog/store/memory"
	"fitgap/internal/signoff/metrics"
	"fitgap/internal/signoff/models"
	"fitgap/internal/signoff/store/memory"
	"fitgap/pkg/canonhash"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	txcontext "fitgap/pkg/platform/tx"
	"fitgap/pkg/requestcontext"
)

const authority = "I am authorised to approve this fit/gap design for Acme AG."

// failingLedger fails appends of one action and passes everything else through.
type failingLedger struct {
	DecisionLog
	failOn dlmodels.Action
}

func (l *failingLedger) Append(ctx context.Context, e *dlmodels.Entry) error {
	if e.Action == l.failOn {
		return errors.New("ledger unavailable")
	}
	return l.DecisionLog.Append(ctx, e)
}

type SignOffSuite struct {
	suite.Suite
	ctx         context.Context
	assessments *assessmentstore.AssessmentStore
	snapshots   *assessmentstore.SnapshotStore
	processes   *memory.ProcessStore
	areas       *memory.AreaValidationStore
	signatures  *memory.SignatureStore
	ledger      *dlservice.Service
	metrics     *metrics.Metrics
	service     *Service

	assessmentID id.AssessmentID
	snapshot     *assessment.Snapshot
}

func TestSignOffSuite(t *testing.T) {
	suite.Run(t, new(SignOffSuite))
}

func (s *SignOffSuite) SetupTest() {
	s.ctx = actorContext("executive")
	s.assessments = assessmentstore.NewAssessmentStore()
	s.snapshots = assessmentstore.NewSnapshotStore()
	s.processes = memory.NewProcessStore()
	s.areas = memory.NewAreaValidationStore()
	s.signatures = memory.NewSignatureStore()
	s.ledger = dlservice.New(dlstore.NewInMemoryStore())
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = s.newService(s.ledger)

	s.assessmentID = s.createAssessment(assessment.StatusInProgress)
	s.snapshot = s.createSnapshot(s.assessmentID)
}

func (s *SignOffSuite) newService(ledger DecisionLog) *Service {
	svc, err := New(Stores{
		Processes:   s.processes,
		Areas:       s.areas,
		Signatures:  s.signatures,
		Assessments: s.assessments,
		Snapshots:   s.snapshots,
	}, ledger, txcontext.NewMemoryRunner(), Config{
		RequiredAreas:      []string{"finance", "controlling"},
		InitiationStatuses: []assessment.Status{assessment.StatusInProgress, assessment.StatusReviewed, assessment.StatusCompleted},
		AuthorityMinLength: 20,
	}, WithTokenCost(bcrypt.MinCost), WithMetrics(s.metrics))
	s.Require().NoError(err)
	return svc
}

func actorContext(role string) context.Context {
	ctx := requestcontext.WithActor(context.Background(), requestcontext.ActorInfo{
		ID:    id.UserID(uuid.New()),
		Email: role + "@example.com",
		Role:  role,
	})
	ctx = requestcontext.WithAuthProvenance(ctx, "jwt", true)
	return requestcontext.WithClientMetadata(ctx, "203.0.113.7",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
}

func (s *SignOffSuite) createAssessment(status assessment.Status) id.AssessmentID {
	now := time.Now().UTC()
	a := &assessment.Assessment{
		ID:        id.AssessmentID(uuid.New()),
		Name:      "S/4HANA finance rollout",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.assessments.Save(context.Background(), a))
	return a.ID
}

func (s *SignOffSuite) createSnapshot(assessmentID id.AssessmentID) *assessment.Snapshot {
	snap := &assessment.Snapshot{
		ID:           id.SnapshotID(uuid.New()),
		AssessmentID: assessmentID,
		Version:      1,
		Data: assessment.SnapshotData{
			ScopeSelections: []assessment.ScopeSelection{{ScopeItemID: "J58", Selected: true}},
			GapResolutions: []assessment.GapResolution{
				{GapID: "G-1", ResolutionType: "KEY_USER_EXT", EffortDays: decimal.RequireFromString("4.5")},
			},
		},
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.snapshots.Create(context.Background(), snap))
	return snap
}

func (s *SignOffSuite) start() *models.StartResult {
	res, err := s.service.Start(s.ctx, s.assessmentID, s.snapshot.ID)
	s.Require().NoError(err)
	return res
}

func (s *SignOffSuite) approve(signOffID id.SignOffID, area string) *models.AreaSubmission {
	res, err := s.service.SubmitAreaValidation(actorContext("validator"), signOffID, area,
		models.AreaValidationRequest{Status: models.ValidationApproved, Comments: "looks right"})
	s.Require().NoError(err)
	return res
}

func attestation() models.AttestationRequest {
	return models.AttestationRequest{
		AuthorityStatement: authority,
		SignerOrganization: "Acme AG",
		SignerTitle:        "CFO",
	}
}

func (s *SignOffSuite) ledgerEntries() []*dlmodels.Entry {
	page, err := s.ledger.Query(context.Background(), s.assessmentID, dlmodels.Filter{}, "", dlservice.MaxPageSize)
	s.Require().NoError(err)
	return page.Entries
}

func (s *SignOffSuite) TestStart() {
	s.Run("creates the process and one ledger entry", func() {
		res := s.start()
		s.Equal(models.StatusAreaValidationInProgress, res.Process.Status)
		s.Equal(s.snapshot.ID, res.Process.SnapshotID)
		s.NotEmpty(res.VerificationToken)
		s.NotEqual(res.VerificationToken, res.Process.VerificationTokenHash)

		entries := s.ledgerEntries()
		s.Require().Len(entries, 1)
		s.Equal(dlmodels.ActionSignOffInitiated, entries[0].Action)
		s.Nil(entries[0].OldValue)
		s.Equal("AREA_VALIDATION_IN_PROGRESS", entries[0].NewValue["status"])
		s.Equal("executive", entries[0].ActorRole)

		ok, err := s.service.VerifyToken(s.ctx, res.Process.ID, res.VerificationToken)
		s.Require().NoError(err)
		s.True(ok)
		ok, err = s.service.VerifyToken(s.ctx, res.Process.ID, "not-the-token")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("second initiation is a conflict", func() {
		_, err := s.service.Start(s.ctx, s.assessmentID, s.snapshot.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict), err)
		s.Len(s.ledgerEntries(), 1)
	})

	s.Run("snapshot of another assessment is not found", func() {
		other := s.createAssessment(assessment.StatusReviewed)
		_, err := s.service.Start(s.ctx, other, s.snapshot.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound), err)
	})

	s.Run("missing assessment is not found", func() {
		_, err := s.service.Start(s.ctx, id.AssessmentID(uuid.New()), s.snapshot.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound), err)
	})

	s.Run("draft assessment cannot enter sign-off", func() {
		draft := s.createAssessment(assessment.StatusDraft)
		snap := s.createSnapshot(draft)
		_, err := s.service.Start(s.ctx, draft, snap.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), err)
	})

	s.Run("anonymous caller is unauthorized", func() {
		_, err := s.service.Start(context.Background(), s.assessmentID, s.snapshot.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), err)
	})
}

func (s *SignOffSuite) TestCompletePath() {
	res := s.start()
	signOffID := res.Process.ID

	first := s.approve(signOffID, "finance")
	s.Equal(models.StatusAreaValidationInProgress, first.Process.Status)
	second := s.approve(signOffID, "Controlling")
	s.Equal(models.StatusAreaValidationComplete, second.Process.Status)

	exec, err := s.service.SignExecutive(s.ctx, signOffID, attestation())
	s.Require().NoError(err)
	s.Equal(models.SignatureExecutive, exec.Type)

	view, err := s.service.Get(s.ctx, signOffID)
	s.Require().NoError(err)
	s.Equal(models.StatusExecutiveSigned, view.Process.Status)

	partner, err := s.service.SignPartner(actorContext("partner"), signOffID, attestation())
	s.Require().NoError(err)

	s.Equal(exec.DocumentHash, partner.DocumentHash)
	s.Equal(canonhash.MustHash(s.snapshot.Data), exec.DocumentHash)
	s.True(canonhash.Verify(s.snapshot.Data, partner.DocumentHash))

	view, err = s.service.GetByAssessment(s.ctx, s.assessmentID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, view.Process.Status)
	s.Equal(exec.DocumentHash, view.Process.CertificateHash)
	s.NotNil(view.Process.CompletedAt)
	s.Len(view.AreaValidations, 2)
	s.Len(view.Signatures, 2)

	s.Run("one ledger entry per operation, newest first", func() {
		entries := s.ledgerEntries()
		s.Require().Len(entries, 5)
		want := []dlmodels.Action{
			dlmodels.ActionPartnerCountersigned,
			dlmodels.ActionExecutiveSigned,
			dlmodels.ActionAreaValidationSubmitted,
			dlmodels.ActionAreaValidationSubmitted,
			dlmodels.ActionSignOffInitiated,
		}
		for i, e := range entries {
			s.Equal(want[i], e.Action)
			if i > 0 {
				s.True(entries[i-1].Timestamp.After(e.Timestamp))
			}
		}
		s.Equal("EXECUTIVE_SIGNED", entries[0].OldValue["status"])
		s.Equal("COMPLETED", entries[0].NewValue["status"])
		s.Equal("AREA_VALIDATION_COMPLETE", entries[1].OldValue["status"])
	})

	s.Run("pagination covers every entry once", func() {
		seen := map[id.EntryID]bool{}
		cursor, pages := "", 0
		for {
			page, err := s.ledger.Query(context.Background(), s.assessmentID, dlmodels.Filter{}, cursor, 2)
			s.Require().NoError(err)
			pages++
			for _, e := range page.Entries {
				s.False(seen[e.ID])
				seen[e.ID] = true
			}
			if !page.HasMore {
				break
			}
			cursor = page.NextCursor
		}
		s.Equal(3, pages)
		s.Len(seen, 5)
	})

	s.Run("terminal process accepts nothing further", func() {
		_, err := s.service.SubmitAreaValidation(actorContext("validator"), signOffID, "finance",
			models.AreaValidationRequest{Status: models.ValidationApproved})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), err)
		_, err = s.service.SignPartner(s.ctx, signOffID, attestation())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict), err)
	})

	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Transitions.WithLabelValues("COMPLETED")))
	s.Equal(float64(0), testutil.ToFloat64(s.metrics.ActiveProcesses))
}

func (s *SignOffSuite) TestRejectedPath() {
	res := s.start()
	signOffID := res.Process.ID
	s.approve(signOffID, "finance")

	sub, err := s.service.SubmitAreaValidation(actorContext("validator"), signOffID, "controlling",
		models.AreaValidationRequest{Status: models.ValidationRejected, RejectionReason: "cost centre hierarchy missing"})
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, sub.Process.Status)
	s.Equal("cost centre hierarchy missing", sub.Process.RejectionReason)

	_, err = s.service.SignExecutive(s.ctx, signOffID, attestation())
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), err)

	_, err = s.service.SubmitAreaValidation(actorContext("validator"), signOffID, "controlling",
		models.AreaValidationRequest{Status: models.ValidationApproved})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), err)

	entries := s.ledgerEntries()
	s.Require().Len(entries, 3)
	s.Equal(dlmodels.ActionAreaValidationRejected, entries[0].Action)
	s.Equal("cost centre hierarchy missing", entries[0].Reason)
}

func (s *SignOffSuite) TestRejectionVetoesRegardlessOfApprovals() {
	for _, approved := range [][]string{nil, {"finance"}} {
		s.SetupTest()
		res := s.start()
		for _, area := range approved {
			s.approve(res.Process.ID, area)
		}
		sub, err := s.service.SubmitAreaValidation(actorContext("validator"), res.Process.ID, "controlling",
			models.AreaValidationRequest{Status: models.ValidationRejected, RejectionReason: "blocked"})
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, sub.Process.Status)
	}
}

func (s *SignOffSuite) TestOutOfOrderSignatures() {
	res := s.start()

	s.Run("partner before executive while areas are open", func() {
		_, err := s.service.SignPartner(s.ctx, res.Process.ID, attestation())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), err)
	})

	s.Run("executive before areas are complete", func() {
		_, err := s.service.SignExecutive(s.ctx, res.Process.ID, attestation())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), err)
	})

	s.approve(res.Process.ID, "finance")
	s.approve(res.Process.ID, "controlling")

	s.Run("partner before executive once areas are complete", func() {
		_, err := s.service.SignPartner(s.ctx, res.Process.ID, attestation())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState), err)
	})

	s.Run("second executive signature is a conflict", func() {
		_, err := s.service.SignExecutive(s.ctx, res.Process.ID, attestation())
		s.Require().NoError(err)
		_, err = s.service.SignExecutive(s.ctx, res.Process.ID, attestation())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict), err)
	})
}

func (s *SignOffSuite) TestValidation() {
	res := s.start()

	s.Run("unknown area", func() {
		_, err := s.service.SubmitAreaValidation(actorContext("validator"), res.Process.ID, "hr",
			models.AreaValidationRequest{Status: models.ValidationApproved})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), err)
	})

	s.Run("rejection without reason", func() {
		_, err := s.service.SubmitAreaValidation(actorContext("validator"), res.Process.ID, "finance",
			models.AreaValidationRequest{Status: models.ValidationRejected})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), err)
	})

	s.Run("short authority statement", func() {
		req := attestation()
		req.AuthorityStatement = "ok"
		_, err := s.service.SignExecutive(s.ctx, res.Process.ID, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), err)
	})

	s.Run("missing process", func() {
		_, err := s.service.SignExecutive(s.ctx, id.SignOffID(uuid.New()), attestation())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound), err)
	})

	s.Len(s.ledgerEntries(), 1)
}

func (s *SignOffSuite) TestResubmissionReplacesAreaRow() {
	res := s.start()
	first := s.approve(res.Process.ID, "finance")

	second, err := s.service.SubmitAreaValidation(actorContext("validator"), res.Process.ID, "finance",
		models.AreaValidationRequest{Status: models.ValidationApproved, Comments: "rechecked"})
	s.Require().NoError(err)
	s.Equal(first.Validation.ID, second.Validation.ID)

	view, err := s.service.Get(s.ctx, res.Process.ID)
	s.Require().NoError(err)
	s.Require().Len(view.AreaValidations, 1)
	s.Equal("rechecked", view.AreaValidations[0].Comments)
	s.Len(s.ledgerEntries(), 3)
}

func (s *SignOffSuite) TestSignatureProvenance() {
	res := s.start()
	s.approve(res.Process.ID, "finance")
	s.approve(res.Process.ID, "controlling")

	sig, err := s.service.SignExecutive(s.ctx, res.Process.ID, attestation())
	s.Require().NoError(err)
	s.Equal("203.0.113.7", sig.IPAddress)
	s.Contains(sig.ClientDevice, "Firefox")
	s.Equal("jwt", sig.AuthMethod)
	s.True(sig.MFAVerified)
	s.Equal("executive@example.com", sig.SignerEmail)
	s.Len(sig.DocumentHash, canonhash.DigestLength)
}

func (s *SignOffSuite) TestLedgerFailureRollsBack() {
	s.Run("failed initiation leaves no process", func() {
		svc := s.newService(&failingLedger{DecisionLog: s.ledger, failOn: dlmodels.ActionSignOffInitiated})
		_, err := svc.Start(s.ctx, s.assessmentID, s.snapshot.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal), err)

		_, err = s.service.GetByAssessment(s.ctx, s.assessmentID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound), err)
	})

	res := s.start()
	s.approve(res.Process.ID, "finance")
	s.approve(res.Process.ID, "controlling")

	s.Run("failed executive entry leaves no signature and no status change", func() {
		svc := s.newService(&failingLedger{DecisionLog: s.ledger, failOn: dlmodels.ActionExecutiveSigned})
		_, err := svc.SignExecutive(s.ctx, res.Process.ID, attestation())
		s.True(dErrors.HasCode(err, dErrors.CodeInternal), err)

		view, err := s.service.Get(s.ctx, res.Process.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusAreaValidationComplete, view.Process.Status)
		s.Empty(view.Signatures)
		s.Len(s.ledgerEntries(), 3)
	})

	s.Run("the operation succeeds once the ledger recovers", func() {
		_, err := s.service.SignExecutive(s.ctx, res.Process.ID, attestation())
		s.Require().NoError(err)
		s.Len(s.ledgerEntries(), 4)
	})
}

func (s *SignOffSuite) TestConcurrentExecutiveSignatures() {
	res := s.start()
	s.approve(res.Process.ID, "finance")
	s.approve(res.Process.ID, "controlling")

	const goroutines = 10
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
		others    atomic.Int32
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.SignExecutive(actorContext("executive"), res.Process.ID, attestation())
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts.Add(1)
			default:
				others.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
	s.Zero(others.Load())

	view, err := s.service.Get(s.ctx, res.Process.ID)
	s.Require().NoError(err)
	s.Len(view.Signatures, 1)

	page, err := s.ledger.Query(context.Background(), s.assessmentID,
		dlmodels.Filter{EntityType: dlmodels.EntitySignature}, "", 0)
	s.Require().NoError(err)
	s.Len(page.Entries, 1)
}
