// Package reconcile synchronizes metadata documents into a remote search index.
//
// For every document the Engine reads the stored IndexRecord and compares content
// hashes:
//
//   - absent from the index: CREATED
//   - stored hash differs: UPDATED
//   - stored hash equal: SKIPPED, nothing is written
//
// A create that loses a race with another writer (ErrDocumentExists) is retried as an
// update.
//
// # Fidelity regressions
//
// When a partial or fallback document replaces a complete one, or drops columns that
// previously carried distribution statistics, the update still happens but the Result is
// flagged Regressed and a warning is logged.
//
// # Batches
//
// SyncBatch runs a fixed pool of workers over the documents. Failures are collected per
// document and never abort siblings. Every index call goes through the shared
// throttle.Limiter and the retry.Policy given to NewEngine.
//
// # Dry runs
//
// Plan performs the same reads and classification as SyncBatch without writing.
//
// # Usage Example
//
//	engine := reconcile.NewEngine(indexClient, limiter, retry.DefaultPolicy(), log)
//	batch := engine.SyncBatch(ctx, docs, 4)
//	for _, f := range batch.Failed {
//	    log.Error("sync failed", zap.String("id", f.Doc.ID), zap.Error(f.Err))
//	}
package reconcile
