package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"metadata-sync/core/logger"
	"metadata-sync/core/model"
	"metadata-sync/core/storage"
	"metadata-sync/feature/document"
)

// Publish upserts the documents of an NDJSON export into the search index, for
// batches built with SkipIndexSync. Every document is verified first: its id must
// belong to its table and its content hash must match its body, so an edited export
// cannot reach the index under a stale hash. Verified documents are synced with
// opts.Concurrency workers; a failing document never stops the others.
func (o *Orchestrator) Publish(ctx context.Context, key string, opts Options) (*BatchSummary, error) {
	if o.deps.Storage == nil {
		return nil, errors.New("pipeline: publish requires object storage")
	}
	if o.deps.Syncer == nil {
		return nil, errors.New("pipeline: publish requires a syncer")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	runID := uuid.NewString()
	log := logger.WithRun(o.log, runID).With(zap.String("export_key", key))

	// 1. Read the export
	docs, err := storage.GetNDJSON[*model.MetadataDocument](ctx, o.deps.Storage, o.deps.Bucket, key)
	if err != nil {
		return nil, err
	}
	log.Info("Publishing export", zap.Int("documents", len(docs)), zap.Int("concurrency", opts.Concurrency))

	// 2. Verify
	results := make([]unitResult, len(docs))
	var (
		verified []*model.MetadataDocument
		slots    []int
	)
	for i, doc := range docs {
		if doc == nil {
			results[i] = unitResult{
				outcome: TableOutcome{Status: StatusFailed, Error: StageVerify + ": empty record"},
				stage:   StageVerify,
				err:     errors.New("empty record"),
			}
			continue
		}
		out := TableOutcome{
			Table:       doc.Body.Table.Key,
			DocumentID:  doc.ID,
			ContentHash: doc.ContentHash,
			Source:      doc.Source,
			Partial:     doc.Partial,
		}
		if err := verifyDocument(doc); err != nil {
			out.Status = StatusFailed
			out.Error = fmt.Sprintf("%s: %v", StageVerify, err)
			log.Warn("Rejected exported document", zap.String("id", doc.ID), zap.Error(err))
			results[i] = unitResult{outcome: out, stage: StageVerify, err: err}
			continue
		}
		results[i] = unitResult{outcome: out}
		verified = append(verified, doc)
		slots = append(slots, i)
	}

	// 3. Sync
	batch := o.deps.Syncer.SyncBatch(ctx, verified, opts.Concurrency)
	failures := make(map[*model.MetadataDocument]error, len(batch.Failed))
	for _, f := range batch.Failed {
		failures[f.Doc] = f.Err
	}
	for j, res := range batch.Results {
		r := &results[slots[j]]
		if res == nil {
			err := failures[verified[j]]
			r.outcome.Status = StatusFailed
			r.outcome.Error = fmt.Sprintf("%s: %v", StageSync, err)
			r.stage, r.err = StageSync, err
			continue
		}
		r.outcome.Status = Status(res.Action)
		r.outcome.Regressed = res.Regressed
		o.deps.Metrics.IndexAction(strings.ToLower(string(res.Action)))
		if res.Regressed {
			o.deps.Metrics.Regression()
		}
	}

	summary := &BatchSummary{RunID: runID}
	for _, res := range results {
		summary.add(res.outcome, res.stage, res.err)
		o.deps.Metrics.TableOutcome(strings.ToLower(string(res.outcome.Status)))
	}
	log.Info("Publish finished",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// verifyDocument checks that doc is what the builder would have produced for its
// table and body.
func verifyDocument(doc *model.MetadataDocument) error {
	table := model.TableDescriptor{
		Project: doc.Body.Table.Project,
		Dataset: doc.Body.Table.Dataset,
		Table:   doc.Body.Table.Table,
	}
	if err := table.Validate(); err != nil {
		return err
	}
	if want := document.DocumentID(table); doc.ID != want {
		return fmt.Errorf("document id %s does not belong to %s", doc.ID, table.Key())
	}
	hash, err := document.ContentHash(doc.Body)
	if err != nil {
		return err
	}
	if hash != doc.ContentHash {
		return fmt.Errorf("content hash mismatch for %s", doc.ID)
	}
	return nil
}
