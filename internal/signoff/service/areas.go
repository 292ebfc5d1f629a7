package service

import (
	"context"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	dlmodels "fitgap/internal/decisionlog/models"
	"fitgap/internal/signoff/models"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	normalize "fitgap/pkg/platform/strings"
)

// SubmitAreaValidation records a verdict for one functional area. A single
// REJECTED verdict ends the process; once every required area is APPROVED
// the process moves to AREA_VALIDATION_COMPLETE.
func (s *Service) SubmitAreaValidation(ctx context.Context, signOffID id.SignOffID, area string, req models.AreaValidationRequest) (result *models.AreaSubmission, err error) {
	area = normalize.Key(area)
	ctx, finish := s.startSpan(ctx, "submit_area_validation",
		attribute.String("sign_off.id", signOffID.String()),
		attribute.String("area", area),
		attribute.String("verdict", string(req.Status)),
	)
	defer finish(&err)

	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !s.isRequiredArea(area) {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown functional area "+area)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.loadForUpdate(ctx, signOffID)
		if err != nil {
			return err
		}
		if p.Status != models.StatusAreaValidationInProgress {
			return dErrors.New(dErrors.CodeInvalidState, "area validation is closed in status "+string(p.Status))
		}

		now := s.now().UTC()
		stored, err := s.areas.Upsert(ctx, &models.AreaValidation{
			ID:              id.AreaID(uuid.New()),
			SignOffID:       p.ID,
			FunctionalArea:  area,
			ValidatorID:     actor.ID,
			ValidatorEmail:  actor.Email,
			ValidatorRole:   actor.Role,
			Status:          req.Status,
			Comments:        req.Comments,
			RejectionReason: req.RejectionReason,
			ValidatedAt:     now,
		})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store area validation")
		}

		from := p.Status
		action := dlmodels.ActionAreaValidationSubmitted
		if req.Status == models.ValidationRejected {
			if err := p.Reject(req.RejectionReason, now); err != nil {
				return err
			}
			action = dlmodels.ActionAreaValidationRejected
		} else {
			complete, err := s.allAreasApproved(ctx, p.ID)
			if err != nil {
				return err
			}
			if complete {
				if err := p.TransitionTo(models.StatusAreaValidationComplete, now); err != nil {
					return err
				}
			}
		}
		if p.Status != from {
			if err := s.saveStatus(ctx, p, from); err != nil {
				return err
			}
			s.recordTransition(ctx, from, p.Status)
		}

		newValue := map[string]any{
			"status":         string(p.Status),
			"functionalArea": area,
			"areaStatus":     string(stored.Status),
		}
		if stored.Comments != "" {
			newValue["comments"] = stored.Comments
		}
		if err := s.appendEntry(ctx, actor, p, dlmodels.EntityAreaValidation, stored.ID.String(), action,
			map[string]any{"status": string(from)},
			newValue,
			req.RejectionReason,
		); err != nil {
			return err
		}
		result = &models.AreaSubmission{Validation: stored, Process: p}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "area validation submitted",
		"sign_off_id", signOffID.String(),
		"area", area,
		"verdict", string(req.Status),
		"status", string(result.Process.Status),
	)
	return result, nil
}

// allAreasApproved reports whether every configured area has an APPROVED row.
func (s *Service) allAreasApproved(ctx context.Context, signOffID id.SignOffID) (bool, error) {
	validations, err := s.areas.ListBySignOff(ctx, signOffID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list area validations")
	}
	approved := make(map[string]bool, len(validations))
	for _, v := range validations {
		approved[v.FunctionalArea] = v.Status == models.ValidationApproved
	}
	for _, area := range s.cfg.RequiredAreas {
		if !approved[area] {
			return false, nil
		}
	}
	return true, nil
}
