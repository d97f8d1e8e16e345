package checks

import (
	"context"
	"fmt"

	"metadata-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// MaxListedSnapshots bounds the lineage listing of a storage check.
const MaxListedSnapshots = 1000

// StorageReport describes the export bucket and its lineage snapshots.
type StorageReport struct {
	Bucket           string `json:"bucket"`
	BucketExists     bool   `json:"bucket_exists"`
	LineagePrefix    string `json:"lineage_prefix,omitempty"`
	LineageSnapshots int    `json:"lineage_snapshots"`
	// Truncated is set when the listing stopped at MaxListedSnapshots.
	Truncated bool `json:"truncated,omitempty"`
}

// CheckStorage verifies that bucket exists and counts the lineage snapshots under prefix.
// A missing bucket is reported, not returned as an error.
func CheckStorage(ctx context.Context, client storage.Client, bucket, prefix string) (*StorageReport, error) {
	report := &StorageReport{Bucket: bucket, LineagePrefix: prefix}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	report.BucketExists = exists
	if !exists || prefix == "" {
		return report, nil
	}

	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}
	for obj := range client.ListObjects(listCtx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list lineage snapshots: %w", obj.Err)
		}
		if report.LineageSnapshots == MaxListedSnapshots {
			report.Truncated = true
			break
		}
		report.LineageSnapshots++
	}

	return report, nil
}

// FixStorage creates the bucket when it is missing.
func FixStorage(ctx context.Context, client storage.Client, bucket string, logger *zap.Logger) error {
	if err := storage.EnsureBucket(ctx, client, bucket); err != nil {
		logger.Error("Failed to create bucket", zap.String("bucket", bucket), zap.Error(err))
		return err
	}
	logger.Info("Bucket ready", zap.String("bucket", bucket))
	return nil
}
