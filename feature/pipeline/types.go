package pipeline

import (
	"time"

	"metadata-sync/core/model"
)

// DefaultConcurrency is the worker pool size when none is configured.
const DefaultConcurrency = 4

// Options tune one Run.
type Options struct {
	Concurrency     int
	MaxTables       int
	UseManagedScan  bool
	FreshnessWindow time.Duration
	ScanTimeout     time.Duration
	PollInterval    time.Duration
	SkipIndexSync   bool
	// ExportPath is the object key of the NDJSON export. A trailing slash makes it a
	// prefix and the run id names the object.
	ExportPath string
	// DryRun plans index writes without performing them.
	DryRun bool
}

// Status is the final state of one table unit.
type Status string

const (
	StatusCreated Status = "CREATED"
	StatusUpdated Status = "UPDATED"
	StatusSkipped Status = "SKIPPED"
	// StatusBuilt means the document was built but index sync was disabled.
	StatusBuilt     Status = "BUILT"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Stages a table unit can fail in.
const (
	StageSchema  = "schema"
	StageScan    = "scan"
	StageProfile = "profile"
	StageBuild   = "build"
	StageSync    = "sync"
	// StageVerify is where Publish rejects an exported document.
	StageVerify = "verify"
)

// TableOutcome is the result of one table unit.
type TableOutcome struct {
	Table       string              `json:"table"`
	Status      Status              `json:"status"`
	DocumentID  string              `json:"document_id,omitempty"`
	ContentHash string              `json:"content_hash,omitempty"`
	Source      model.ProfileSource `json:"source,omitempty"`
	Partial     bool                `json:"partial,omitempty"`
	Regressed   bool                `json:"regressed,omitempty"`
	// Planned is set on dry runs: Status is what the sync would have done.
	Planned  bool          `json:"planned,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`

	doc *model.MetadataDocument
}

// TableError is an irrecoverable table failure.
type TableError struct {
	Table string `json:"table"`
	Stage string `json:"stage"`
	Err   error  `json:"-"`
}

func (e TableError) Error() string {
	return e.Table + ": " + e.Stage + ": " + e.Err.Error()
}

func (e TableError) Unwrap() error {
	return e.Err
}

// BatchSummary aggregates one Run. Outcomes follow the input order.
type BatchSummary struct {
	RunID     string         `json:"run_id"`
	Created   int            `json:"created"`
	Updated   int            `json:"updated"`
	Skipped   int            `json:"skipped"`
	Built     int            `json:"built"`
	Failed    int            `json:"failed"`
	Cancelled int            `json:"cancelled"`
	Errors    []TableError   `json:"errors,omitempty"`
	Outcomes  []TableOutcome `json:"outcomes"`
	// ExportKey is the object written by the export, if any.
	ExportKey string `json:"export_key,omitempty"`
	// ExportError reports a failed export. It does not fail the batch.
	ExportError string `json:"export_error,omitempty"`
}

// Succeeded counts tables that completed without failure.
func (s *BatchSummary) Succeeded() int {
	return s.Created + s.Updated + s.Skipped + s.Built
}

// ExitCode is 0 iff no table failed.
func (s *BatchSummary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

func (s *BatchSummary) add(o TableOutcome, stage string, err error) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case StatusCreated:
		s.Created++
	case StatusUpdated:
		s.Updated++
	case StatusSkipped:
		s.Skipped++
	case StatusBuilt:
		s.Built++
	case StatusCancelled:
		s.Cancelled++
	case StatusFailed:
		s.Failed++
		s.Errors = append(s.Errors, TableError{Table: o.Table, Stage: stage, Err: err})
	}
}
