package models

import (
	"time"

	id "fitgap/pkg/domain"
)

// Status is the coarse assessment lifecycle owned by the general workflow.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusReviewed   Status = "reviewed"
	StatusCompleted  Status = "completed"
	StatusSignedOff  Status = "signed_off"
	StatusArchived   Status = "archived"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusReviewed, StatusCompleted, StatusSignedOff, StatusArchived:
		return true
	}
	return false
}

// Assessment is the parent aggregate for snapshots, sign-off and signatories.
type Assessment struct {
	ID        id.AssessmentID
	Name      string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot is an immutable, versioned capture of an assessment's decision data.
// Nothing in this module mutates a stored snapshot; hashing and diffing rely on it.
type Snapshot struct {
	ID           id.SnapshotID
	AssessmentID id.AssessmentID
	Version      int
	Data         SnapshotData
	CreatedBy    id.UserID
	CreatedAt    time.Time
}

// BelongsTo reports whether the snapshot was captured for assessmentID.
func (s *Snapshot) BelongsTo(assessmentID id.AssessmentID) bool {
	return s.AssessmentID == assessmentID
}
