package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	dlmodels "fitgap/internal/decisionlog/models"
	"fitgap/internal/platform/device"
	"fitgap/internal/signoff/models"
	"fitgap/pkg/canonhash"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	"fitgap/pkg/platform/sentinel"
	"fitgap/pkg/requestcontext"
)

// signStep describes one attestation: the status it may be entered from, the
// pending status it waits in, and the status it produces.
type signStep struct {
	operation string
	sigType   models.SignatureType
	entryFrom models.Status
	pending   models.Status
	action    dlmodels.Action
}

var executiveStep = signStep{
	operation: "sign_executive",
	sigType:   models.SignatureExecutive,
	entryFrom: models.StatusAreaValidationComplete,
	pending:   models.StatusExecutiveSignOffPending,
	action:    dlmodels.ActionExecutiveSigned,
}

var partnerStep = signStep{
	operation: "sign_partner",
	sigType:   models.SignaturePartner,
	entryFrom: models.StatusExecutiveSigned,
	pending:   models.StatusPartnerCountersignPending,
	action:    dlmodels.ActionPartnerCountersigned,
}

// SignExecutive records the executive attestation over the bound snapshot
// and moves the process to EXECUTIVE_SIGNED.
func (s *Service) SignExecutive(ctx context.Context, signOffID id.SignOffID, req models.AttestationRequest) (*models.SignatureRecord, error) {
	return s.sign(ctx, signOffID, req, executiveStep)
}

// SignPartner records the partner countersignature, recomputing the document
// hash over the same snapshot, and completes the process.
func (s *Service) SignPartner(ctx context.Context, signOffID id.SignOffID, req models.AttestationRequest) (*models.SignatureRecord, error) {
	return s.sign(ctx, signOffID, req, partnerStep)
}

func (s *Service) sign(ctx context.Context, signOffID id.SignOffID, req models.AttestationRequest, step signStep) (record *models.SignatureRecord, err error) {
	ctx, finish := s.startSpan(ctx, step.operation, attribute.String("sign_off.id", signOffID.String()))
	defer finish(&err)

	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validateAttestation(&req); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.loadForUpdate(ctx, signOffID)
		if err != nil {
			return err
		}

		if _, err := s.signatures.FindByType(ctx, p.ID, step.sigType); err == nil {
			return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("%s signature already recorded", strings.ToLower(string(step.sigType))))
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing signature")
		}

		from := p.Status
		now := s.now().UTC()
		if p.Status == step.entryFrom {
			if err := enterPending(p, step, now); err != nil {
				return err
			}
		}
		if p.Status != step.pending {
			return dErrors.New(dErrors.CodeInvalidState,
				fmt.Sprintf("%s signature requires status %s, process is %s", strings.ToLower(string(step.sigType)), step.pending, from))
		}

		snap, err := s.loadSnapshot(ctx, p.SnapshotID)
		if err != nil {
			return err
		}
		documentHash, err := canonhash.Hash(snap.Data)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash snapshot")
		}
		if step.sigType == models.SignaturePartner {
			if err := s.checkExecutiveHash(ctx, p.ID, documentHash); err != nil {
				return err
			}
		}

		record = newSignatureRecord(ctx, p.ID, step.sigType, actor, req, documentHash, now)
		if err := s.signatures.CreateIfAbsent(ctx, record); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "signature already recorded")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store signature")
		}

		switch step.sigType {
		case models.SignatureExecutive:
			err = p.TransitionTo(models.StatusExecutiveSigned, now)
		case models.SignaturePartner:
			err = p.Complete(documentHash, now)
		}
		if err != nil {
			return err
		}
		if err := s.saveStatus(ctx, p, from); err != nil {
			return err
		}
		s.recordTransition(ctx, from, p.Status)

		return s.appendEntry(ctx, actor, p, dlmodels.EntitySignature, record.ID.String(), step.action,
			map[string]any{"status": string(from)},
			map[string]any{
				"status":             string(p.Status),
				"signatureId":        record.ID.String(),
				"signatureType":      string(record.Type),
				"documentHash":       documentHash,
				"signerOrganization": record.SignerOrganization,
				"signerTitle":        record.SignerTitle,
				"mfaVerified":        record.MFAVerified,
			},
			"",
		)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "signature recorded",
		"sign_off_id", signOffID.String(),
		"signature_type", string(record.Type),
		"document_hash", record.DocumentHash,
		"actor_id", actor.ID.String(),
	)
	return record, nil
}

// enterPending is the explicit automatic step into a signature's pending
// status: AREA_VALIDATION_COMPLETE to EXECUTIVE_SIGN_OFF_PENDING, or
// EXECUTIVE_SIGNED to PARTNER_COUNTERSIGN_PENDING.
func enterPending(p *models.Process, step signStep, now time.Time) error {
	if p.Status != step.entryFrom {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("cannot open %s from status %s", step.pending, p.Status))
	}
	return p.TransitionTo(step.pending, now)
}

// checkExecutiveHash guards against the bound snapshot changing between
// the two signatures.
func (s *Service) checkExecutiveHash(ctx context.Context, signOffID id.SignOffID, documentHash string) error {
	exec, err := s.signatures.FindByType(ctx, signOffID, models.SignatureExecutive)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeInvalidState, "partner countersignature requires an executive signature")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load executive signature")
	}
	if exec.DocumentHash != documentHash {
		s.logger.ErrorContext(ctx, "CRITICAL: snapshot hash changed between signatures",
			"sign_off_id", signOffID.String(),
			"executive_hash", exec.DocumentHash,
			"partner_hash", documentHash,
		)
		return dErrors.New(dErrors.CodeInvariantViolation, "bound snapshot no longer matches the executive signature")
	}
	return nil
}

func (s *Service) validateAttestation(req *models.AttestationRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(req.AuthorityStatement); n < s.cfg.AuthorityMinLength {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("authorityStatement must be at least %d characters", s.cfg.AuthorityMinLength))
	}
	return nil
}

func newSignatureRecord(
	ctx context.Context,
	signOffID id.SignOffID,
	sigType models.SignatureType,
	actor requestcontext.ActorInfo,
	req models.AttestationRequest,
	documentHash string,
	now time.Time,
) *models.SignatureRecord {
	userAgent := requestcontext.UserAgent(ctx)
	record := &models.SignatureRecord{
		ID:                 id.SignatureID(uuid.New()),
		SignOffID:          signOffID,
		Type:               sigType,
		SignerID:           actor.ID,
		SignerEmail:        actor.Email,
		SignerOrganization: req.SignerOrganization,
		SignerTitle:        req.SignerTitle,
		AuthorityStatement: req.AuthorityStatement,
		IPAddress:          requestcontext.ClientIP(ctx),
		UserAgent:          userAgent,
		AuthMethod:         requestcontext.AuthMethod(ctx),
		MFAVerified:        requestcontext.MFAVerified(ctx),
		DocumentHash:       documentHash,
		Status:             models.SignatureCompleted,
		SignedAt:           now,
	}
	if userAgent != "" {
		record.ClientDevice = device.ParseUserAgent(userAgent)
	}
	return record
}
