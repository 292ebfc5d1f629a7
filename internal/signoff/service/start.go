package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	dlmodels "fitgap/internal/decisionlog/models"
	"fitgap/internal/signoff/models"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	"fitgap/pkg/platform/sentinel"
	txcontext "fitgap/pkg/platform/tx"
	"fitgap/pkg/requestcontext"
)

const verificationTokenBytes = 32

// Start opens the sign-off process of an assessment, bound to snapshotID.
// The verification token in the result is returned only here.
func (s *Service) Start(ctx context.Context, assessmentID id.AssessmentID, snapshotID id.SnapshotID) (result *models.StartResult, err error) {
	ctx, finish := s.startSpan(ctx, "start",
		attribute.String("assessment.id", assessmentID.String()),
		attribute.String("snapshot.id", snapshotID.String()),
	)
	defer finish(&err)

	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	token, tokenHash, err := s.newVerificationToken()
	if err != nil {
		return nil, err
	}

	var process *models.Process
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkInitiationAllowed(ctx, assessmentID); err != nil {
			return err
		}

		existing, err := s.processes.FindByAssessment(ctx, assessmentID)
		switch {
		case err == nil && existing != nil:
			return dErrors.New(dErrors.CodeConflict, "sign-off already exists for assessment")
		case err != nil && !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing sign-off")
		}

		snap, err := s.loadSnapshot(ctx, snapshotID)
		if err != nil {
			return err
		}
		if !snap.BelongsTo(assessmentID) {
			return dErrors.New(dErrors.CodeNotFound, "snapshot not found for assessment")
		}

		process, err = models.NewProcess(id.SignOffID(uuid.New()), assessmentID, snapshotID,
			actor.ID, actor.Email, tokenHash, s.now().UTC())
		if err != nil {
			return err
		}
		if err := s.processes.Create(ctx, process); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "sign-off already exists for assessment")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create sign-off")
		}

		if err := s.appendEntry(ctx, actor, process, dlmodels.EntitySignOff, process.ID.String(),
			dlmodels.ActionSignOffInitiated,
			nil,
			map[string]any{
				"status":     string(process.Status),
				"snapshotId": snapshotID.String(),
				"version":    snap.Version,
			},
			"",
		); err != nil {
			return err
		}
		if s.metrics != nil {
			txcontext.AfterCommit(ctx, func(context.Context) { s.metrics.IncActive() })
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sign-off initiated",
		"sign_off_id", process.ID.String(),
		"assessment_id", assessmentID.String(),
		"snapshot_id", snapshotID.String(),
		"actor_id", actor.ID.String(),
	)
	return &models.StartResult{Process: process, VerificationToken: token}, nil
}

func (s *Service) checkInitiationAllowed(ctx context.Context, assessmentID id.AssessmentID) error {
	a, err := s.assessments.FindByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "assessment not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment")
	}
	if !slices.Contains(s.cfg.InitiationStatuses, a.Status) {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("assessment in status %s cannot enter sign-off", a.Status))
	}
	return nil
}

// newVerificationToken returns a random URL-safe token and its bcrypt hash.
func (s *Service) newVerificationToken() (string, string, error) {
	raw := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification token")
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	hash, err := bcrypt.GenerateFromPassword([]byte(token), s.tokenCost)
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash verification token")
	}
	return token, string(hash), nil
}

func requireActor(ctx context.Context) (requestcontext.ActorInfo, error) {
	actor := requestcontext.Actor(ctx)
	if actor.ID.IsNil() {
		return actor, dErrors.New(dErrors.CodeUnauthorized, "authenticated actor is required")
	}
	return actor, nil
}

// appendEntry writes the single ledger entry of an operation. Its failure
// aborts the enclosing transaction.
func (s *Service) appendEntry(
	ctx context.Context,
	actor requestcontext.ActorInfo,
	p *models.Process,
	entityType dlmodels.EntityType,
	entityID string,
	action dlmodels.Action,
	oldValue, newValue map[string]any,
	reason string,
) error {
	entry := &dlmodels.Entry{
		AssessmentID: p.AssessmentID,
		EntityType:   entityType,
		EntityID:     entityID,
		Action:       action,
		OldValue:     oldValue,
		NewValue:     newValue,
		ActorID:      actor.ID,
		ActorEmail:   actor.Email,
		ActorRole:    actor.Role,
		Reason:       reason,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record decision")
	}
	return nil
}
