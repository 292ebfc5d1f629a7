package models

import (
	"time"

	id "fitgap/pkg/domain"
)

// ChangeType tags one item-level difference between two snapshots.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// Category is one tracked section of snapshot data.
type Category string

const (
	CategoryScopeSelections      Category = "scopeSelections"
	CategoryStepClassifications  Category = "stepClassifications"
	CategoryGapResolutions       Category = "gapResolutions"
	CategoryIntegrationPoints    Category = "integrationPoints"
	CategoryDataMigrationObjects Category = "dataMigrationObjects"
)

// Categories lists every tracked category in report order.
var Categories = []Category{
	CategoryScopeSelections,
	CategoryStepClassifications,
	CategoryGapResolutions,
	CategoryIntegrationPoints,
	CategoryDataMigrationObjects,
}

// FieldChange is a before/after pair for one field of a modified item.
type FieldChange struct {
	Field  string `json:"field"`
	Before any    `json:"before"`
	After  any    `json:"after"`
}

// Change is one item difference. Before is set for removed and modified
// items, After for added and modified items; Fields only for modified.
type Change struct {
	Key    string         `json:"key"`
	Type   ChangeType     `json:"type"`
	Before map[string]any `json:"before,omitempty"`
	After  map[string]any `json:"after,omitempty"`
	Fields []FieldChange  `json:"fields,omitempty"`
}

// Report is the structural diff from a base snapshot to a compare snapshot.
type Report struct {
	ScopeSelections      []Change `json:"scopeSelections"`
	StepClassifications  []Change `json:"stepClassifications"`
	GapResolutions       []Change `json:"gapResolutions"`
	IntegrationPoints    []Change `json:"integrationPoints"`
	DataMigrationObjects []Change `json:"dataMigrationObjects"`
}

// Changes returns the change list for c.
func (r *Report) Changes(c Category) []Change {
	switch c {
	case CategoryScopeSelections:
		return r.ScopeSelections
	case CategoryStepClassifications:
		return r.StepClassifications
	case CategoryGapResolutions:
		return r.GapResolutions
	case CategoryIntegrationPoints:
		return r.IntegrationPoints
	case CategoryDataMigrationObjects:
		return r.DataMigrationObjects
	}
	return nil
}

// Counts aggregates changes by type.
type Counts struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

func (c Counts) Total() int {
	return c.Added + c.Removed + c.Modified
}

// Summary holds per-category counts and their totals.
type Summary struct {
	ScopeSelections      Counts `json:"scopeSelections"`
	StepClassifications  Counts `json:"stepClassifications"`
	GapResolutions       Counts `json:"gapResolutions"`
	IntegrationPoints    Counts `json:"integrationPoints"`
	DataMigrationObjects Counts `json:"dataMigrationObjects"`
	AddedCount           int    `json:"addedCount"`
	RemovedCount         int    `json:"removedCount"`
	ModifiedCount        int    `json:"modifiedCount"`
	TotalChanges         int    `json:"totalChanges"`
}

// Comparison is a cached report between two snapshots of one assessment.
// It can be recomputed at any time and is never a source of truth.
type Comparison struct {
	BaseSnapshotID    id.SnapshotID   `json:"baseSnapshotId"`
	CompareSnapshotID id.SnapshotID   `json:"compareSnapshotId"`
	AssessmentID      id.AssessmentID `json:"assessmentId"`
	Report            Report          `json:"report"`
	Summary           Summary         `json:"summary"`
	ComputedAt        time.Time       `json:"computedAt"`
}
