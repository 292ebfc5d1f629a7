package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"fitgap/internal/signoff/models"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	"fitgap/pkg/platform/sentinel"
)

// Get returns a process with its area validations and signatures.
func (s *Service) Get(ctx context.Context, signOffID id.SignOffID) (*models.View, error) {
	p, err := s.processes.FindByID(ctx, signOffID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "sign-off not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sign-off")
	}
	return s.view(ctx, p)
}

// GetByAssessment returns the process of an assessment.
func (s *Service) GetByAssessment(ctx context.Context, assessmentID id.AssessmentID) (*models.View, error) {
	p, err := s.processes.FindByAssessment(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "sign-off not found for assessment")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sign-off")
	}
	return s.view(ctx, p)
}

func (s *Service) view(ctx context.Context, p *models.Process) (*models.View, error) {
	validations, err := s.areas.ListBySignOff(ctx, p.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list area validations")
	}
	signatures, err := s.signatures.ListBySignOff(ctx, p.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list signatures")
	}
	return &models.View{Process: p, AreaValidations: validations, Signatures: signatures}, nil
}

// VerifyToken reports whether token is the verification token issued when
// the process was started.
func (s *Service) VerifyToken(ctx context.Context, signOffID id.SignOffID, token string) (bool, error) {
	if token == "" {
		return false, dErrors.New(dErrors.CodeValidation, "token is required")
	}
	p, err := s.processes.FindByID(ctx, signOffID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, dErrors.New(dErrors.CodeNotFound, "sign-off not found")
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sign-off")
	}
	err = bcrypt.CompareHashAndPassword([]byte(p.VerificationTokenHash), []byte(token))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify token")
	}
}
