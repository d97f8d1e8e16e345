package integrity

import (
	"context"

	"metadata-sync/core/database"
	"metadata-sync/core/model"
	"metadata-sync/core/storage"
	"metadata-sync/feature/integrity/checks"

	"go.uber.org/zap"
)

// Report aggregates every preflight check.
type Report struct {
	Storage  *checks.StorageReport  `json:"storage,omitempty"`
	Database *checks.DatabaseReport `json:"database,omitempty"`
	Errors   []string               `json:"errors,omitempty"`
}

// Healthy reports whether every check passed.
func (r *Report) Healthy() bool {
	if len(r.Errors) > 0 {
		return false
	}
	if r.Storage != nil && !r.Storage.BucketExists {
		return false
	}
	return r.Database == nil || r.Database.Matched
}

// Service handles preflight checks.
type Service struct {
	client        storage.Client
	bucket        string
	lineagePrefix string
	engine        database.QueryEngine
	catalog       database.SchemaCatalog
	logger        *zap.Logger
}

// NewService creates a new integrity service. client or engine may be nil to skip
// the matching checks.
func NewService(client storage.Client, bucket, lineagePrefix string, engine database.QueryEngine, catalog database.SchemaCatalog, logger *zap.Logger) *Service {
	return &Service{
		client:        client,
		bucket:        bucket,
		lineagePrefix: lineagePrefix,
		engine:        engine,
		catalog:       catalog,
		logger:        logger,
	}
}

// Run executes all checks. With fix, a missing bucket is created and re-checked.
func (s *Service) Run(ctx context.Context, tables []model.TableDescriptor, fix bool) *Report {
	report := &Report{}

	if s.client != nil {
		st, err := checks.CheckStorage(ctx, s.client, s.bucket, s.lineagePrefix)
		if err == nil && !st.BucketExists && fix {
			if err = checks.FixStorage(ctx, s.client, s.bucket, s.logger); err == nil {
				st, err = checks.CheckStorage(ctx, s.client, s.bucket, s.lineagePrefix)
			}
		}
		if err != nil {
			report.Errors = append(report.Errors, "storage: "+err.Error())
		}
		report.Storage = st
	}

	if s.engine != nil && s.catalog != nil {
		db, err := checks.CheckDatabase(ctx, s.engine, s.catalog, tables)
		if err != nil {
			report.Errors = append(report.Errors, "database: "+err.Error())
		}
		report.Database = db
	}

	return report
}
