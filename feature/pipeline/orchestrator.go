package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"metadata-sync/core/database"
	"metadata-sync/core/logger"
	"metadata-sync/core/metrics"
	"metadata-sync/core/model"
	"metadata-sync/core/reconcile"
	"metadata-sync/core/storage"
	"metadata-sync/feature/document"
	"metadata-sync/feature/lineage"
	"metadata-sync/feature/scan"
)

// Scanner refreshes the managed scan of a table. scan.Manager implements it.
type Scanner interface {
	Refresh(ctx context.Context, table model.TableDescriptor, opts scan.RefreshOptions) (*model.ScanResource, error)
}

// ProfileExtractor turns a scan handle into a profile. profile.Extractor implements it.
type ProfileExtractor interface {
	Extract(ctx context.Context, table model.TableDescriptor, schema []model.ColumnSchema, handle *model.ScanResource) (*model.TableProfile, error)
}

// Syncer writes documents to the search index. reconcile.Engine implements it.
type Syncer interface {
	Upsert(ctx context.Context, doc *model.MetadataDocument) (*reconcile.Result, error)
	SyncBatch(ctx context.Context, docs []*model.MetadataDocument, concurrency int) *reconcile.BatchResult
	Plan(ctx context.Context, docs []*model.MetadataDocument) *reconcile.SyncPlan
}

// Deps are the collaborators of an Orchestrator. Scanner, Syncer, Lineage and Storage
// are optional.
type Deps struct {
	Catalog   database.SchemaCatalog
	Scanner   Scanner
	Extractor ProfileExtractor
	Builder   *document.Builder
	Syncer    Syncer
	Lineage   lineage.Source
	Storage   storage.Client
	Bucket    string
	Metrics   *metrics.Recorder
	Log       *zap.Logger
}

// Orchestrator drives scan, extract, build and sync for a batch of tables.
type Orchestrator struct {
	deps Deps
	log  *zap.Logger
	now  func() time.Time
}

// New creates an orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.Builder == nil {
		deps.Builder = document.NewBuilder()
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{deps: deps, log: log.Named("pipeline"), now: time.Now}
}

type unitResult struct {
	outcome TableOutcome
	stage   string
	err     error
}

// Run processes tables with at most opts.Concurrency units in flight. Once ctx is
// cancelled no new unit starts; units already running finish on a detached context and
// the rest are reported as cancelled. Table failures never fail the batch; Run only
// returns an error for invalid arguments.
func (o *Orchestrator) Run(ctx context.Context, tables []model.TableDescriptor, opts Options) (*BatchSummary, error) {
	if o.deps.Catalog == nil || o.deps.Extractor == nil {
		return nil, errors.New("pipeline: schema catalog and extractor are required")
	}
	if !opts.SkipIndexSync && o.deps.Syncer == nil {
		return nil, errors.New("pipeline: index sync enabled without a syncer")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.MaxTables > 0 && len(tables) > opts.MaxTables {
		tables = tables[:opts.MaxTables]
	}

	runID := uuid.NewString()
	log := logger.WithRun(o.log, runID)
	log.Info("Starting batch",
		zap.Int("tables", len(tables)),
		zap.Int("concurrency", opts.Concurrency),
		zap.Bool("managed_scan", opts.UseManagedScan),
		zap.Bool("dry_run", opts.DryRun))

	// 1. Dispatch units to the bounded pool
	results := make([]unitResult, len(tables))
	started := make([]bool, len(tables))
	detached := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i, table := range tables {
		if ctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			// The slot may have been freed after cancellation.
			if ctx.Err() != nil {
				started[i] = false
				return nil
			}
			results[i] = o.process(detached, log, table, opts)
			return nil
		})
	}
	_ = g.Wait()

	// 2. Aggregate in input order
	summary := &BatchSummary{RunID: runID}
	for i, table := range tables {
		res := results[i]
		if !started[i] {
			res = unitResult{outcome: TableOutcome{Table: table.Key(), Status: StatusCancelled}}
		}
		summary.add(res.outcome, res.stage, res.err)
		o.deps.Metrics.TableOutcome(strings.ToLower(string(res.outcome.Status)))
	}

	// 3. Export built documents
	if opts.ExportPath != "" {
		o.export(detached, log, summary, results, opts.ExportPath)
	}

	log.Info("Batch finished",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("built", summary.Built),
		zap.Int("failed", summary.Failed),
		zap.Int("cancelled", summary.Cancelled))
	return summary, nil
}

// process runs one table unit. Stages are strictly sequential.
func (o *Orchestrator) process(ctx context.Context, log *zap.Logger, table model.TableDescriptor, opts Options) unitResult {
	start := o.now()
	log = logger.WithTable(log, table)
	out := TableOutcome{Table: table.Key()}

	fail := func(stage string, err error) unitResult {
		out.Status = StatusFailed
		out.Error = fmt.Sprintf("%s: %v", stage, err)
		out.Duration = o.now().Sub(start)
		log.Error("Table failed", zap.String("stage", stage), zap.Error(err))
		return unitResult{outcome: out, stage: stage, err: err}
	}

	// 1. Schema
	schema, err := o.deps.Catalog.GetSchema(ctx, table)
	if err != nil {
		return fail(StageSchema, err)
	}

	// 2. Managed scan; only a permission error fails the table, anything else
	// degrades to the fallback profiler
	var handle *model.ScanResource
	if opts.UseManagedScan && o.deps.Scanner != nil {
		handle, err = o.refresh(ctx, log, table, opts)
		if err != nil {
			return fail(StageScan, err)
		}
	}

	// 3. Profile
	profile, err := o.deps.Extractor.Extract(ctx, table, schema, handle)
	if err != nil {
		return fail(StageProfile, err)
	}

	// 4. Lineage is optional
	var refs []model.LineageRef
	if o.deps.Lineage != nil {
		refs, err = o.deps.Lineage.Lineage(ctx, table)
		if err != nil {
			log.Warn("Lineage unavailable", zap.Error(err))
			refs = nil
		}
	}

	// 5. Build
	doc, err := o.deps.Builder.Build(table, schema, profile, refs)
	if err != nil {
		return fail(StageBuild, err)
	}
	out.DocumentID = doc.ID
	out.ContentHash = doc.ContentHash
	out.Source = doc.Source
	out.Partial = doc.Partial
	out.doc = doc

	// 6. Sync
	switch {
	case opts.SkipIndexSync:
		out.Status = StatusBuilt
	case opts.DryRun:
		plan := o.deps.Syncer.Plan(ctx, []*model.MetadataDocument{doc})
		if len(plan.Failed) > 0 {
			return fail(StageSync, plan.Failed[0].Err)
		}
		if len(plan.Actions) == 0 {
			return fail(StageSync, errors.New("sync plan is empty"))
		}
		out.Status = Status(plan.Actions[0].Action)
		out.Regressed = plan.Actions[0].Regressed
		out.Planned = true
	default:
		res, err := o.deps.Syncer.Upsert(ctx, doc)
		if err != nil {
			return fail(StageSync, err)
		}
		out.Status = Status(res.Action)
		out.Regressed = res.Regressed
		o.deps.Metrics.IndexAction(strings.ToLower(string(res.Action)))
		if res.Regressed {
			o.deps.Metrics.Regression()
		}
	}

	out.Duration = o.now().Sub(start)
	log.Info("Table synchronized",
		zap.String("status", string(out.Status)),
		zap.String("source", string(out.Source)),
		zap.Bool("partial", out.Partial),
		zap.Duration("duration", out.Duration))
	return unitResult{outcome: out}
}

// refresh returns the scan handle of table, or whatever the manager resolved before a
// failure. The extractor decides from its state whether the managed result is usable.
// Only permission errors are returned.
func (o *Orchestrator) refresh(ctx context.Context, log *zap.Logger, table model.TableDescriptor, opts Options) (*model.ScanResource, error) {
	start := o.now()
	handle, err := o.deps.Scanner.Refresh(ctx, table, scan.RefreshOptions{
		FreshnessWindow: opts.FreshnessWindow,
		Timeout:         opts.ScanTimeout,
		PollInterval:    opts.PollInterval,
	})
	o.deps.Metrics.ScanWait(o.now().Sub(start).Seconds())
	switch {
	case err == nil:
	case errors.Is(err, scan.ErrPermission):
		return nil, err
	case scan.IsTimeout(err):
		log.Info("Scan timed out, falling back", zap.Error(err))
	default:
		log.Warn("Managed scan unavailable, falling back", zap.Error(err))
	}
	return handle, nil
}

// export writes every built document as NDJSON in one overwrite.
func (o *Orchestrator) export(ctx context.Context, log *zap.Logger, summary *BatchSummary, results []unitResult, path string) {
	if o.deps.Storage == nil {
		summary.ExportError = "object storage is not configured"
		log.Warn("Export skipped", zap.String("reason", summary.ExportError))
		return
	}

	var docs []*model.MetadataDocument
	for _, res := range results {
		if res.outcome.doc != nil {
			docs = append(docs, res.outcome.doc)
		}
	}

	key := ExportKey(path, summary.RunID)
	if err := storage.EnsureBucket(ctx, o.deps.Storage, o.deps.Bucket); err != nil {
		summary.ExportError = err.Error()
		log.Error("Export failed", zap.Error(err))
		return
	}
	info, err := storage.PutNDJSON(ctx, o.deps.Storage, o.deps.Bucket, key, docs)
	if err != nil {
		summary.ExportError = err.Error()
		log.Error("Export failed", zap.String("key", key), zap.Error(err))
		return
	}
	summary.ExportKey = key
	log.Info("Exported documents",
		zap.String("bucket", o.deps.Bucket),
		zap.String("key", key),
		zap.Int("documents", len(docs)),
		zap.Int64("bytes", info.Size))
}

// ExportKey resolves the export object key. A path ending in "/" is a prefix.
func ExportKey(path, runID string) string {
	if strings.HasSuffix(path, "/") {
		return path + runID + ".ndjson"
	}
	return path
}
