package models

import (
	"fmt"
	"time"

	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
)

// Process is the sign-off aggregate for one assessment.
//
// Invariants:
//   - exactly one process per assessment
//   - SnapshotID is fixed at initiation and every signature hashes that snapshot
//   - Status only changes along CanTransition
//   - COMPLETED and REJECTED are final
//   - CertificateHash and CompletedAt are set only on COMPLETED
type Process struct {
	ID                    id.SignOffID    `json:"id"`
	AssessmentID          id.AssessmentID `json:"assessmentId"`
	SnapshotID            id.SnapshotID   `json:"snapshotId"`
	Status                Status          `json:"status"`
	InitiatedBy           id.UserID       `json:"initiatedBy"`
	InitiatedByEmail      string          `json:"initiatedByEmail"`
	VerificationTokenHash string          `json:"-"` // bcrypt hash, never serialized
	RejectionReason       string          `json:"rejectionReason,omitempty"`
	CertificateHash       string          `json:"certificateHash,omitempty"`
	CompletedAt           *time.Time      `json:"completedAt,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

func NewProcess(
	processID id.SignOffID,
	assessmentID id.AssessmentID,
	snapshotID id.SnapshotID,
	initiatedBy id.UserID,
	initiatedByEmail string,
	verificationTokenHash string,
	now time.Time,
) (*Process, error) {
	if initiatedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sign-off initiator is required")
	}
	if verificationTokenHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "verification token hash is required")
	}
	return &Process{
		ID:                    processID,
		AssessmentID:          assessmentID,
		SnapshotID:            snapshotID,
		Status:                StatusAreaValidationInProgress,
		InitiatedBy:           initiatedBy,
		InitiatedByEmail:      initiatedByEmail,
		VerificationTokenHash: verificationTokenHash,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// TransitionTo moves the process to target if the graph allows it.
func (p *Process) TransitionTo(target Status, now time.Time) error {
	if !CanTransition(p.Status, target) {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("sign-off cannot move from %s to %s", p.Status, target))
	}
	p.Status = target
	p.UpdatedAt = now
	return nil
}

// Reject ends the process on an area veto.
func (p *Process) Reject(reason string, now time.Time) error {
	if err := p.TransitionTo(StatusRejected, now); err != nil {
		return err
	}
	p.RejectionReason = reason
	return nil
}

// Complete ends the process and stamps the certificate.
func (p *Process) Complete(certificateHash string, now time.Time) error {
	if err := p.TransitionTo(StatusCompleted, now); err != nil {
		return err
	}
	p.CertificateHash = certificateHash
	completedAt := now
	p.CompletedAt = &completedAt
	return nil
}

// ValidationStatus is an area validator's verdict.
type ValidationStatus string

const (
	ValidationApproved ValidationStatus = "APPROVED"
	ValidationRejected ValidationStatus = "REJECTED"
)

func (s ValidationStatus) IsValid() bool {
	return s == ValidationApproved || s == ValidationRejected
}

// AreaValidation is the latest verdict for one functional area. A new
// submission for the same area replaces the previous one.
type AreaValidation struct {
	ID              id.AreaID        `json:"id"`
	SignOffID       id.SignOffID     `json:"signOffId"`
	FunctionalArea  string           `json:"functionalArea"`
	ValidatorID     id.UserID        `json:"validatorId"`
	ValidatorEmail  string           `json:"validatorEmail"`
	ValidatorRole   string           `json:"validatorRole"`
	Status          ValidationStatus `json:"status"`
	Comments        string           `json:"comments,omitempty"`
	RejectionReason string           `json:"rejectionReason,omitempty"`
	ValidatedAt     time.Time        `json:"validatedAt"`
}

// SignatureType distinguishes the two attestations of a process.
type SignatureType string

const (
	SignatureExecutive SignatureType = "EXECUTIVE"
	SignaturePartner   SignatureType = "PARTNER"
)

// SignatureStatus is the state of a recorded attestation.
type SignatureStatus string

const SignatureCompleted SignatureStatus = "COMPLETED"

// SignatureRecord is one attestation bound to the process snapshot by
// DocumentHash. At most one exists per (SignOffID, Type).
type SignatureRecord struct {
	ID                 id.SignatureID  `json:"id"`
	SignOffID          id.SignOffID    `json:"signOffId"`
	Type               SignatureType   `json:"signatureType"`
	SignerID           id.UserID       `json:"signerId"`
	SignerEmail        string          `json:"signerEmail"`
	SignerOrganization string          `json:"signerOrganization"`
	SignerTitle        string          `json:"signerTitle"`
	AuthorityStatement string          `json:"authorityStatement"`
	IPAddress          string          `json:"ipAddress,omitempty"`
	UserAgent          string          `json:"userAgent,omitempty"`
	ClientDevice       string          `json:"clientDevice,omitempty"`
	AuthMethod         string          `json:"authMethod,omitempty"`
	MFAVerified        bool            `json:"mfaVerified"`
	DocumentHash       string          `json:"documentHash"`
	Status             SignatureStatus `json:"status"`
	SignedAt           time.Time       `json:"signedAt"`
}

// View is a process together with its area validations and signatures.
type View struct {
	Process         *Process           `json:"process"`
	AreaValidations []*AreaValidation  `json:"areaValidations"`
	Signatures      []*SignatureRecord `json:"signatures"`
}
