package cmd

import (
	"fmt"

	"metadata-sync/core/config"
	"metadata-sync/core/database"
	"metadata-sync/core/metrics"
	"metadata-sync/core/reconcile"
	"metadata-sync/core/storage"
	"metadata-sync/core/throttle"
	"metadata-sync/feature/index"
	"metadata-sync/feature/lineage"
	"metadata-sync/feature/pipeline"
	"metadata-sync/feature/profile"
	"metadata-sync/feature/scan"

	"go.uber.org/zap"
)

// app holds the wired components of one invocation.
type app struct {
	catalog      database.SchemaCatalog
	scans        *scan.Manager
	orchestrator *pipeline.Orchestrator
}

// newApp connects every collaborator described by cfg. Optional collaborators are
// left out when disabled: the scan manager without managed scans, the sync engine
// when index sync is skipped, lineage without a lineage prefix.
func newApp(cfg *config.Config, log *zap.Logger, rec *metrics.Recorder) (*app, error) {
	// 1. Query engine and schema catalog
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	catalog := database.NewSchemaCatalog(db, cfg.Database.Project)

	// 2. Shared limiter and retry policy
	limiter := throttle.New(cfg.Pipeline.RateLimit)
	policy := cfg.Pipeline.Retry.Policy()

	deps := pipeline.Deps{
		Catalog: catalog,
		Metrics: rec,
		Log:     log,
	}
	a := &app{catalog: catalog}

	// 3. Managed scans
	var results profile.ResultSource
	if cfg.Pipeline.UseManagedScan {
		svc, err := scan.NewClient(cfg.Scan)
		if err != nil {
			return nil, err
		}
		a.scans = scan.NewManager(svc, limiter, policy, log)
		deps.Scanner = a.scans
		results = a.scans
	}

	// 4. Profile extraction
	fallback := profile.NewFallbackProfiler(database.NewQueryEngine(db), cfg.Pipeline.TopValues, policy, log)
	deps.Extractor = profile.NewExtractor(results, fallback, cfg.Pipeline.FreshnessWindow, log, rec)

	// 5. Index sync
	if !cfg.Pipeline.SkipIndexSync {
		idx, err := index.NewClient(cfg.Index)
		if err != nil {
			return nil, err
		}
		deps.Syncer = reconcile.NewEngine(idx, limiter, policy, log)
	}

	// 6. Object storage for lineage and exports
	lineageRoot := cfg.Storage.LineageRoot()
	if cfg.Pipeline.ExportPath != "" || lineageRoot != "" {
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to storage: %w", err)
		}
		deps.Storage = store
		deps.Bucket = cfg.Storage.Bucket
		if lineageRoot != "" {
			deps.Lineage = lineage.NewStorageSource(store, cfg.Storage.Bucket, lineageRoot)
		}
	}

	a.orchestrator = pipeline.New(deps)
	return a, nil
}
