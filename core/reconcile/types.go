package reconcile

import "metadata-sync/core/model"

// Action is the write decision for one document.
type Action string

const (
	// ActionCreated means the document was absent and has been created.
	ActionCreated Action = "CREATED"
	// ActionUpdated means the stored hash differed and the document was replaced.
	ActionUpdated Action = "UPDATED"
	// ActionSkipped means the stored hash matches; nothing was written.
	ActionSkipped Action = "SKIPPED"
)

// Result is the outcome of one upsert.
type Result struct {
	// DocumentID is the id of the synchronized document.
	DocumentID string `json:"document_id"`

	// Action is what the engine did.
	Action Action `json:"action"`

	// Regressed is set when a partial document replaced a more complete one.
	Regressed bool `json:"regressed,omitempty"`

	// Lost lists high-fidelity columns the replaced record had and the new one lacks.
	Lost []string `json:"lost,omitempty"`
}

// Failure pairs a document with the error that stopped its sync.
type Failure struct {
	Doc *model.MetadataDocument
	Err error
}

// BatchResult aggregates a SyncBatch call.
type BatchResult struct {
	Created int
	Updated int
	Skipped int
	Failed  []Failure

	// Results holds the per-document outcome in input order; nil for failed documents.
	Results []*Result
}

// PlannedAction is the dry-run decision for one document.
type PlannedAction struct {
	DocumentID string `json:"document_id"`
	Action     Action `json:"action"`
	// Reason explains the decision, e.g. "hash changed".
	Reason    string   `json:"reason"`
	Regressed bool     `json:"regressed,omitempty"`
	Lost      []string `json:"lost,omitempty"`
}

// PlanSummary provides aggregate counts for a plan.
type PlanSummary struct {
	Create     int `json:"create"`
	Update     int `json:"update"`
	Skip       int `json:"skip"`
	Regression int `json:"regression"`
	Failed     int `json:"failed"`
}

// SyncPlan is the dry-run output of Plan.
type SyncPlan struct {
	Actions []PlannedAction `json:"actions"`
	Summary PlanSummary     `json:"summary"`
	Failed  []Failure       `json:"-"`
}
