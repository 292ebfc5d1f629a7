package models

import (
	"time"

	id "fitgap/pkg/domain"
)

// EntityType names the kind of entity a ledger entry is about.
type EntityType string

const (
	EntitySignOff        EntityType = "SIGN_OFF"
	EntityAreaValidation EntityType = "AREA_VALIDATION"
	EntitySignature      EntityType = "SIGNATURE"
	EntitySignatory      EntityType = "SIGNATORY"
)

func (e EntityType) IsValid() bool {
	switch e {
	case EntitySignOff, EntityAreaValidation, EntitySignature, EntitySignatory:
		return true
	}
	return false
}

// Action is the closed set of decisions the ledger records.
type Action string

const (
	ActionSignOffInitiated        Action = "SIGN_OFF_INITIATED"
	ActionAreaValidationSubmitted Action = "AREA_VALIDATION_SUBMITTED"
	ActionAreaValidationRejected  Action = "AREA_VALIDATION_REJECTED"
	ActionExecutiveSigned         Action = "EXECUTIVE_SIGNED"
	ActionPartnerCountersigned    Action = "PARTNER_COUNTERSIGNED"
	ActionSignatoryRecorded       Action = "SIGNATORY_RECORDED"
	ActionAssessmentSignedOff     Action = "ASSESSMENT_SIGNED_OFF"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionSignOffInitiated, ActionAreaValidationSubmitted, ActionAreaValidationRejected,
		ActionExecutiveSigned, ActionPartnerCountersigned, ActionSignatoryRecorded,
		ActionAssessmentSignedOff:
		return true
	}
	return false
}

// Entry is one immutable ledger row. OldValue is nil when the entity did not
// exist before the decision.
type Entry struct {
	ID           id.EntryID      `json:"id"`
	AssessmentID id.AssessmentID `json:"assessmentId"`
	EntityType   EntityType      `json:"entityType"`
	EntityID     string          `json:"entityId"`
	Action       Action          `json:"action"`
	OldValue     map[string]any  `json:"oldValue"`
	NewValue     map[string]any  `json:"newValue"`
	ActorID      id.UserID       `json:"actorId"`
	ActorEmail   string          `json:"actorEmail"`
	ActorRole    string          `json:"actorRole"`
	Reason       string          `json:"reason,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Filter narrows a query to one entity type and/or one actor.
type Filter struct {
	EntityType EntityType
	ActorID    id.UserID
}

// Matches reports whether e satisfies every set criterion.
func (f Filter) Matches(e *Entry) bool {
	if f.EntityType != "" && e.EntityType != f.EntityType {
		return false
	}
	if !f.ActorID.IsNil() && e.ActorID != f.ActorID {
		return false
	}
	return true
}

// ListParams is the store-level query. Cursor, when set, excludes the cursor
// entry and everything newer than it.
type ListParams struct {
	AssessmentID id.AssessmentID
	Filter       Filter
	Cursor       *id.EntryID
	Limit        int
}

// Page is one page of entries, newest first.
type Page struct {
	Entries    []*Entry `json:"entries"`
	HasMore    bool     `json:"hasMore"`
	NextCursor string   `json:"nextCursor,omitempty"`
}
