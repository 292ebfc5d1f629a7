// Package domain holds the typed identifiers shared across bounded contexts.
// Each ID is a distinct named uuid.UUID so the compiler rejects passing an
// assessment ID where a snapshot ID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "fitgap/pkg/domain-errors"
)

type (
	AssessmentID uuid.UUID
	SnapshotID   uuid.UUID
	SignOffID    uuid.UUID
	AreaID       uuid.UUID
	SignatureID  uuid.UUID
	SignatoryID  uuid.UUID
	EntryID      uuid.UUID
	ComparisonID uuid.UUID
	UserID       uuid.UUID
)

func (id AssessmentID) String() string { return uuid.UUID(id).String() }
func (id SnapshotID) String() string   { return uuid.UUID(id).String() }
func (id SignOffID) String() string    { return uuid.UUID(id).String() }
func (id AreaID) String() string       { return uuid.UUID(id).String() }
func (id SignatureID) String() string  { return uuid.UUID(id).String() }
func (id SignatoryID) String() string  { return uuid.UUID(id).String() }
func (id EntryID) String() string      { return uuid.UUID(id).String() }
func (id ComparisonID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string       { return uuid.UUID(id).String() }

func (id AssessmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SnapshotID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id SignOffID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps IDs in canonical UUID form in JSON and logs.
func (id AssessmentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *AssessmentID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id SnapshotID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *SnapshotID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id SignOffID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *SignOffID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id AreaID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *AreaID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id SignatureID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *SignatureID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id SignatoryID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *SignatoryID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id EntryID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *EntryID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id ComparisonID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *ComparisonID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *UserID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// NewEntryID returns a time-ordered (v7) ID so ledger rows sort by insertion.
func NewEntryID() EntryID {
	return EntryID(uuid.Must(uuid.NewV7()))
}

func ParseAssessmentID(s string) (AssessmentID, error) {
	u, err := parseUUID(s, "assessment ID")
	return AssessmentID(u), err
}

func ParseSnapshotID(s string) (SnapshotID, error) {
	u, err := parseUUID(s, "snapshot ID")
	return SnapshotID(u), err
}

func ParseSignOffID(s string) (SignOffID, error) {
	u, err := parseUUID(s, "sign-off ID")
	return SignOffID(u), err
}

func ParseEntryID(s string) (EntryID, error) {
	u, err := parseUUID(s, "entry ID")
	return EntryID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
