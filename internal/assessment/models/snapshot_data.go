package models

import "github.com/shopspring/decimal"

// SnapshotData is the typed decision-relevant content of a snapshot. Every
// item carries a stable key used to align items across snapshots.
type SnapshotData struct {
	ScopeSelections      []ScopeSelection      `json:"scopeSelections"`
	StepClassifications  []StepClassification  `json:"stepClassifications"`
	GapResolutions       []GapResolution       `json:"gapResolutions"`
	IntegrationPoints    []IntegrationPoint    `json:"integrationPoints"`
	DataMigrationObjects []DataMigrationObject `json:"dataMigrationObjects"`
}

// ScopeSelection records whether an SAP scope item is in scope.
type ScopeSelection struct {
	ScopeItemID string `json:"scopeItemId"`
	Selected    bool   `json:"selected"`
	Relevance   string `json:"relevance,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// StepClassification is the fit/gap verdict for one process step.
type StepClassification struct {
	ProcessStepID  string `json:"processStepId"`
	ScopeItemID    string `json:"scopeItemId,omitempty"`
	Classification string `json:"classification"`
	Notes          string `json:"notes,omitempty"`
}

// GapResolution describes how an identified gap will be closed.
type GapResolution struct {
	GapID          string          `json:"gapId"`
	ResolutionType string          `json:"resolutionType"`
	Description    string          `json:"description,omitempty"`
	EffortDays     decimal.Decimal `json:"effortDays"`
	RiskLevel      string          `json:"riskLevel,omitempty"`
	Approved       bool            `json:"approved"`
}

// IntegrationPoint is an interface between the target system and another system.
type IntegrationPoint struct {
	IntegrationID string `json:"integrationId"`
	Name          string `json:"name"`
	SourceSystem  string `json:"sourceSystem"`
	TargetSystem  string `json:"targetSystem"`
	Direction     string `json:"direction,omitempty"`
	Frequency     string `json:"frequency,omitempty"`
	Complexity    string `json:"complexity,omitempty"`
}

// DataMigrationObject is a master or transactional data object to migrate.
type DataMigrationObject struct {
	ObjectID       string `json:"objectId"`
	ObjectName     string `json:"objectName"`
	SourceSystem   string `json:"sourceSystem,omitempty"`
	VolumeEstimate int64  `json:"volumeEstimate"`
	Complexity     string `json:"complexity,omitempty"`
	MigrationTool  string `json:"migrationTool,omitempty"`
}
