package models

import (
	"strings"

	dErrors "fitgap/pkg/domain-errors"
)

// StartRequest initiates sign-off of an assessment against one snapshot.
type StartRequest struct {
	SnapshotID string `json:"snapshotId" validate:"required,uuid"`
}

// AreaValidationRequest is a validator's verdict for one functional area.
type AreaValidationRequest struct {
	Status          ValidationStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Comments        string           `json:"comments" validate:"max=4000"`
	RejectionReason string           `json:"rejectionReason" validate:"required_if=Status REJECTED,max=2000"`
}

func (r *AreaValidationRequest) Validate() error {
	r.Comments = strings.TrimSpace(r.Comments)
	r.RejectionReason = strings.TrimSpace(r.RejectionReason)
	if !r.Status.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "status must be APPROVED or REJECTED")
	}
	if r.Status == ValidationRejected && r.RejectionReason == "" {
		return dErrors.New(dErrors.CodeValidation, "rejectionReason is required when rejecting an area")
	}
	return nil
}

// AttestationRequest carries the signer's statement for an executive or
// partner signature.
type AttestationRequest struct {
	AuthorityStatement string `json:"authorityStatement" validate:"required,max=4000"`
	SignerOrganization string `json:"signerOrganization" validate:"required,max=256"`
	SignerTitle        string `json:"signerTitle" validate:"required,max=256"`
}

func (r *AttestationRequest) Validate() error {
	r.AuthorityStatement = strings.TrimSpace(r.AuthorityStatement)
	r.SignerOrganization = strings.TrimSpace(r.SignerOrganization)
	r.SignerTitle = strings.TrimSpace(r.SignerTitle)
	switch {
	case r.AuthorityStatement == "":
		return dErrors.New(dErrors.CodeValidation, "authorityStatement is required")
	case r.SignerOrganization == "":
		return dErrors.New(dErrors.CodeValidation, "signerOrganization is required")
	case r.SignerTitle == "":
		return dErrors.New(dErrors.CodeValidation, "signerTitle is required")
	}
	return nil
}

// VerifyTokenRequest checks a verification token handed out at initiation.
type VerifyTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// StartResult is returned once from initiation. VerificationToken is never
// stored or shown again.
type StartResult struct {
	Process           *Process `json:"process"`
	VerificationToken string   `json:"verificationToken"`
}

// AreaSubmission is the stored validation and the process after it was applied.
type AreaSubmission struct {
	Validation *AreaValidation `json:"validation"`
	Process    *Process        `json:"process"`
}
