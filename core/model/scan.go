package model

import "time"

// ScanState is the lifecycle state of a profiling scan resource.
type ScanState string

const (
	ScanAbsent    ScanState = "ABSENT"
	ScanCreating  ScanState = "CREATING"
	ScanIdle      ScanState = "IDLE"
	ScanRunning   ScanState = "RUNNING"
	ScanSucceeded ScanState = "SUCCEEDED"
	ScanFailed    ScanState = "FAILED"
)

// scanTransitions lists the allowed next states for every state.
var scanTransitions = map[ScanState][]ScanState{
	ScanAbsent:    {ScanCreating, ScanIdle},
	ScanCreating:  {ScanIdle, ScanFailed},
	ScanIdle:      {ScanRunning},
	ScanRunning:   {ScanRunning, ScanSucceeded, ScanFailed},
	ScanSucceeded: {ScanRunning},
	ScanFailed:    {ScanRunning},
}

// IsTerminal reports whether a run has finished.
func (s ScanState) IsTerminal() bool {
	return s == ScanSucceeded || s == ScanFailed
}

// IsActive reports whether the resource is being created or is running.
func (s ScanState) IsActive() bool {
	return s == ScanCreating || s == ScanRunning
}

// CanTransition reports whether moving from s to next is allowed.
func (s ScanState) CanTransition(next ScanState) bool {
	for _, allowed := range scanTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseScanState maps a service state string to a ScanState.
// Unknown values map to ScanIdle so an unrecognised state never looks terminal.
func ParseScanState(s string) ScanState {
	switch ScanState(s) {
	case ScanAbsent, ScanCreating, ScanIdle, ScanRunning, ScanSucceeded, ScanFailed:
		return ScanState(s)
	case "PENDING", "QUEUED", "STARTING":
		return ScanRunning
	case "CANCELLED", "CANCELED":
		return ScanFailed
	case "ACTIVE", "":
		return ScanIdle
	default:
		return ScanIdle
	}
}

// JobHandle identifies one run of a scan.
type JobHandle struct {
	ID     string `json:"id"`
	ScanID string `json:"scan_id"`
}

// ScanResource is the service-side view of a table's scan.
type ScanResource struct {
	ID        string          `json:"id"`
	Table     TableDescriptor `json:"table"`
	State     ScanState       `json:"state"`
	LastRunAt *time.Time      `json:"last_run_at,omitempty"`
	Job       *JobHandle      `json:"job,omitempty"`
}

// IsFresh reports whether the last successful run is within window of now.
func (r *ScanResource) IsFresh(now time.Time, window time.Duration) bool {
	if r == nil || r.State != ScanSucceeded || r.LastRunAt == nil {
		return false
	}
	return now.Sub(*r.LastRunAt) <= window
}
