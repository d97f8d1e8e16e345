package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"metadata-sync/core/model"
	"metadata-sync/core/remote"
)

// Service is the remote profiling service.
//
// GetScan returns an error matching ErrNotFound when the table has no scan resource;
// CreateScan returns one matching ErrAlreadyExists when it already has one.
type Service interface {
	GetScan(ctx context.Context, table model.TableDescriptor) (*model.ScanResource, error)
	CreateScan(ctx context.Context, table model.TableDescriptor) (*model.ScanResource, error)
	RunScan(ctx context.Context, scanID string) (model.JobHandle, error)
	GetJob(ctx context.Context, job model.JobHandle) (model.ScanState, error)
	// GetResult returns the raw FULL result payload of the latest successful run.
	GetResult(ctx context.Context, scanID string) ([]byte, error)
}

var (
	ErrNotFound      = remote.ErrNotFound
	ErrAlreadyExists = remote.ErrAlreadyExists
	ErrPermission    = remote.ErrPermission
)

// ScanTimeoutError is returned when a run does not finish in time. It is recoverable:
// callers fall back to direct profiling.
type ScanTimeoutError struct {
	Job       model.JobHandle
	Timeout   time.Duration
	LastState model.ScanState
}

func (e *ScanTimeoutError) Error() string {
	return fmt.Sprintf("scan job %s did not finish within %s (last state %s)", e.Job.ID, e.Timeout, e.LastState)
}

// IsTimeout reports whether err is a ScanTimeoutError.
func IsTimeout(err error) bool {
	var te *ScanTimeoutError
	return errors.As(err, &te)
}

// ScanID returns the deterministic scan resource id for table: "scan-" followed by
// 32 hex chars of the SHA-256 of the table key. Resource ids only allow lowercase
// letters, digits and hyphens, so the key itself cannot be used.
func ScanID(table model.TableDescriptor) string {
	sum := sha256.Sum256([]byte(table.Key()))
	return "scan-" + hex.EncodeToString(sum[:])[:32]
}
