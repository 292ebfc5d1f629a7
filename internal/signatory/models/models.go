package models

import (
	"strings"
	"time"

	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
	normalize "fitgap/pkg/platform/strings"
)

// Role is one of the three parties whose signatures close an assessment.
type Role string

const (
	RoleClientRepresentative Role = "client_representative"
	RoleConsultant           Role = "consultant"
	RoleProgramManager       Role = "program_manager"
)

// RequiredRoles must all be present before the assessment is signed off.
var RequiredRoles = []Role{RoleClientRepresentative, RoleConsultant, RoleProgramManager}

func (r Role) IsValid() bool {
	switch r {
	case RoleClientRepresentative, RoleConsultant, RoleProgramManager:
		return true
	}
	return false
}

// Signatory is the recorded signature of one role on an assessment.
type Signatory struct {
	ID           id.SignatoryID  `json:"id"`
	AssessmentID id.AssessmentID `json:"assessmentId"`
	Role         Role            `json:"role"`
	SignerID     id.UserID       `json:"signerId"`
	SignerName   string          `json:"signerName"`
	SignerEmail  string          `json:"signerEmail"`
	SignedAt     time.Time       `json:"signedAt"`
}

// RecordRequest names the role being signed for and the signer's display name.
type RecordRequest struct {
	Role       Role   `json:"role" validate:"required"`
	SignerName string `json:"signerName" validate:"required,max=256"`
}

func (r *RecordRequest) Validate() error {
	r.Role = Role(normalize.Key(string(r.Role)))
	r.SignerName = strings.TrimSpace(r.SignerName)
	if !r.Role.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "role must be one of client_representative, consultant, program_manager")
	}
	if r.SignerName == "" {
		return dErrors.New(dErrors.CodeValidation, "signerName is required")
	}
	return nil
}

// Roster is the signatories of an assessment and whether it is complete.
type Roster struct {
	AssessmentID id.AssessmentID `json:"assessmentId"`
	Signatories  []*Signatory    `json:"signatories"`
	Missing      []Role          `json:"missing"`
	Complete     bool            `json:"complete"`
}
