// Package service records the three-party signatory roster of an assessment.
// It is independent of the sign-off process: when every required role has
// signed, the assessment itself moves to signed_off.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	assessment "fitgap/internal/assessment/models"
	dlmodels "fitgap/internal/decisionlog/models"
	"fitgap/internal/signatory/models"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	"fitgap/pkg/platform/sentinel"
	txcontext "fitgap/pkg/platform/tx"
	"fitgap/pkg/requestcontext"
)

type Store interface {
	// Create fails with sentinel.ErrConflict when the role is already signed.
	Create(ctx context.Context, sig *models.Signatory) error
	ListByAssessment(ctx context.Context, assessmentID id.AssessmentID) ([]*models.Signatory, error)
}

type AssessmentStore interface {
	FindByID(ctx context.Context, assessmentID id.AssessmentID) (*assessment.Assessment, error)
	// FindByIDForUpdate locks the assessment for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, assessmentID id.AssessmentID) (*assessment.Assessment, error)
	UpdateStatus(ctx context.Context, assessmentID id.AssessmentID, status assessment.Status, now time.Time) error
}

type DecisionLog interface {
	Append(ctx context.Context, entry *dlmodels.Entry) error
}

type Service struct {
	store       Store
	assessments AssessmentStore
	ledger      DecisionLog
	tx          txcontext.Runner
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store Store, assessments AssessmentStore, ledger DecisionLog, tx txcontext.Runner, opts ...Option) *Service {
	s := &Service{
		store:       store,
		assessments: assessments,
		ledger:      ledger,
		tx:          tx,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record signs the assessment for req.Role as the current actor and returns
// the updated roster.
func (s *Service) Record(ctx context.Context, assessmentID id.AssessmentID, req models.RecordRequest) (*models.Roster, error) {
	actor := requestcontext.Actor(ctx)
	if actor.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authenticated actor is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var roster *models.Roster
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// The row lock makes concurrent signers take turns, so the one that
		// completes the roster sees every committed signatory.
		a, err := s.assessments.FindByIDForUpdate(ctx, assessmentID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "assessment not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment")
		}
		if a.Status == assessment.StatusArchived {
			return dErrors.New(dErrors.CodeInvalidState, "archived assessments cannot be signed")
		}

		now := s.now().UTC()
		sig := &models.Signatory{
			ID:           id.SignatoryID(uuid.New()),
			AssessmentID: assessmentID,
			Role:         req.Role,
			SignerID:     actor.ID,
			SignerName:   req.SignerName,
			SignerEmail:  actor.Email,
			SignedAt:     now,
		}
		if err := s.store.Create(ctx, sig); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "role "+string(req.Role)+" has already signed")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record signatory")
		}

		roster, err = s.roster(ctx, assessmentID)
		if err != nil {
			return err
		}

		action := dlmodels.ActionSignatoryRecorded
		newValue := map[string]any{
			"role":        string(sig.Role),
			"signerName":  sig.SignerName,
			"signatoryId": sig.ID.String(),
		}
		if roster.Complete && a.Status != assessment.StatusSignedOff {
			if err := s.assessments.UpdateStatus(ctx, assessmentID, assessment.StatusSignedOff, now); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark assessment signed off")
			}
			action = dlmodels.ActionAssessmentSignedOff
			newValue["assessmentStatus"] = string(assessment.StatusSignedOff)
		}

		if err := s.ledger.Append(ctx, &dlmodels.Entry{
			AssessmentID: assessmentID,
			EntityType:   dlmodels.EntitySignatory,
			EntityID:     sig.ID.String(),
			Action:       action,
			OldValue:     map[string]any{"assessmentStatus": string(a.Status)},
			NewValue:     newValue,
			ActorID:      actor.ID,
			ActorEmail:   actor.Email,
			ActorRole:    actor.Role,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record decision")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "signatory recorded",
		"assessment_id", assessmentID.String(),
		"role", string(req.Role),
		"complete", roster.Complete,
	)
	return roster, nil
}

// Roster returns the signatories of an assessment and the roles still missing.
func (s *Service) Roster(ctx context.Context, assessmentID id.AssessmentID) (*models.Roster, error) {
	if _, err := s.assessments.FindByID(ctx, assessmentID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "assessment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment")
	}
	return s.roster(ctx, assessmentID)
}

func (s *Service) roster(ctx context.Context, assessmentID id.AssessmentID) (*models.Roster, error) {
	signatories, err := s.store.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list signatories")
	}
	signed := make(map[models.Role]bool, len(signatories))
	for _, sig := range signatories {
		signed[sig.Role] = true
	}
	missing := make([]models.Role, 0, len(models.RequiredRoles))
	for _, role := range models.RequiredRoles {
		if !signed[role] {
			missing = append(missing, role)
		}
	}
	return &models.Roster{
		AssessmentID: assessmentID,
		Signatories:  signatories,
		Missing:      missing,
		Complete:     len(missing) == 0,
	}, nil
}
