// Package delta computes structural differences between two snapshots.
//
// Items in each category are aligned by a stable key. An item present only in
// the compare snapshot is added, one present only in the base is removed, and
// one present in both with any differing field is modified. Swapping the
// inputs swaps added and removed and the before/after of every field change;
// the modified count never changes.
package delta

import (
	"sort"

	"github.com/shopspring/decimal"

	assessment "fitgap/internal/assessment/models"
	"fitgap/internal/delta/models"
)

type field struct {
	name  string
	value any
}

// itemSpec tells diff how to key and decompose one item type.
type itemSpec[T any] struct {
	key    func(T) string
	fields func(T) []field
}

var scopeSelectionSpec = itemSpec[assessment.ScopeSelection]{
	key: func(s assessment.ScopeSelection) string { return s.ScopeItemID },
	fields: func(s assessment.ScopeSelection) []field {
		return []field{
			{"scopeItemId", s.ScopeItemID},
			{"selected", s.Selected},
			{"relevance", s.Relevance},
			{"notes", s.Notes},
		}
	},
}

var stepClassificationSpec = itemSpec[assessment.StepClassification]{
	key: func(s assessment.StepClassification) string { return s.ProcessStepID },
	fields: func(s assessment.StepClassification) []field {
		return []field{
			{"processStepId", s.ProcessStepID},
			{"scopeItemId", s.ScopeItemID},
			{"classification", s.Classification},
			{"notes", s.Notes},
		}
	},
}

var gapResolutionSpec = itemSpec[assessment.GapResolution]{
	key: func(g assessment.GapResolution) string { return g.GapID },
	fields: func(g assessment.GapResolution) []field {
		return []field{
			{"gapId", g.GapID},
			{"resolutionType", g.ResolutionType},
			{"description", g.Description},
			{"effortDays", g.EffortDays},
			{"riskLevel", g.RiskLevel},
			{"approved", g.Approved},
		}
	},
}

var integrationPointSpec = itemSpec[assessment.IntegrationPoint]{
	key: func(i assessment.IntegrationPoint) string { return i.IntegrationID },
	fields: func(i assessment.IntegrationPoint) []field {
		return []field{
			{"integrationId", i.IntegrationID},
			{"name", i.Name},
			{"sourceSystem", i.SourceSystem},
			{"targetSystem", i.TargetSystem},
			{"direction", i.Direction},
			{"frequency", i.Frequency},
			{"complexity", i.Complexity},
		}
	},
}

var dataMigrationObjectSpec = itemSpec[assessment.DataMigrationObject]{
	key: func(d assessment.DataMigrationObject) string { return d.ObjectID },
	fields: func(d assessment.DataMigrationObject) []field {
		return []field{
			{"objectId", d.ObjectID},
			{"objectName", d.ObjectName},
			{"sourceSystem", d.SourceSystem},
			{"volumeEstimate", d.VolumeEstimate},
			{"complexity", d.Complexity},
			{"migrationTool", d.MigrationTool},
		}
	},
}

// ComputeReport diffs base against compare in every tracked category.
func ComputeReport(base, compare assessment.SnapshotData) models.Report {
	return models.Report{
		ScopeSelections:      diff(base.ScopeSelections, compare.ScopeSelections, scopeSelectionSpec),
		StepClassifications:  diff(base.StepClassifications, compare.StepClassifications, stepClassificationSpec),
		GapResolutions:       diff(base.GapResolutions, compare.GapResolutions, gapResolutionSpec),
		IntegrationPoints:    diff(base.IntegrationPoints, compare.IntegrationPoints, integrationPointSpec),
		DataMigrationObjects: diff(base.DataMigrationObjects, compare.DataMigrationObjects, dataMigrationObjectSpec),
	}
}

// ComputeSummary counts the report's changes per category and type.
func ComputeSummary(r models.Report) models.Summary {
	var s models.Summary
	for _, c := range models.Categories {
		counts := countChanges(r.Changes(c))
		switch c {
		case models.CategoryScopeSelections:
			s.ScopeSelections = counts
		case models.CategoryStepClassifications:
			s.StepClassifications = counts
		case models.CategoryGapResolutions:
			s.GapResolutions = counts
		case models.CategoryIntegrationPoints:
			s.IntegrationPoints = counts
		case models.CategoryDataMigrationObjects:
			s.DataMigrationObjects = counts
		}
		s.AddedCount += counts.Added
		s.RemovedCount += counts.Removed
		s.ModifiedCount += counts.Modified
	}
	s.TotalChanges = s.AddedCount + s.RemovedCount + s.ModifiedCount
	return s
}

func countChanges(changes []models.Change) models.Counts {
	var c models.Counts
	for _, ch := range changes {
		switch ch.Type {
		case models.ChangeAdded:
			c.Added++
		case models.ChangeRemoved:
			c.Removed++
		case models.ChangeModified:
			c.Modified++
		}
	}
	return c
}

// diff aligns items by key. When a key repeats within one side, the last
// occurrence wins. Changes are ordered by key.
func diff[T any](base, compare []T, spec itemSpec[T]) []models.Change {
	baseByKey := index(base, spec)
	compareByKey := index(compare, spec)

	changes := make([]models.Change, 0)
	for key, b := range baseByKey {
		c, ok := compareByKey[key]
		if !ok {
			changes = append(changes, models.Change{Key: key, Type: models.ChangeRemoved, Before: toMap(spec.fields(b))})
			continue
		}
		if fieldChanges := compareFields(spec.fields(b), spec.fields(c)); len(fieldChanges) > 0 {
			changes = append(changes, models.Change{
				Key:    key,
				Type:   models.ChangeModified,
				Before: toMap(spec.fields(b)),
				After:  toMap(spec.fields(c)),
				Fields: fieldChanges,
			})
		}
	}
	for key, c := range compareByKey {
		if _, ok := baseByKey[key]; !ok {
			changes = append(changes, models.Change{Key: key, Type: models.ChangeAdded, After: toMap(spec.fields(c))})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}

func index[T any](items []T, spec itemSpec[T]) map[string]T {
	out := make(map[string]T, len(items))
	for _, it := range items {
		out[spec.key(it)] = it
	}
	return out
}

// compareFields relies on both sides listing the same fields in the same order.
func compareFields(before, after []field) []models.FieldChange {
	var out []models.FieldChange
	for i := range before {
		if !equalValues(before[i].value, after[i].value) {
			out = append(out, models.FieldChange{
				Field:  before[i].name,
				Before: before[i].value,
				After:  after[i].value,
			})
		}
	}
	return out
}

func equalValues(a, b any) bool {
	if da, ok := a.(decimal.Decimal); ok {
		db, ok := b.(decimal.Decimal)
		return ok && da.Equal(db)
	}
	return a == b
}

func toMap(fields []field) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f.name] = f.value
	}
	return out
}
