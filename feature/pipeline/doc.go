// Package pipeline runs batches of tables through scan, profile extraction, document
// build and index sync.
//
// Each table is one unit; its stages run sequentially. Units run in an errgroup bounded
// by Options.Concurrency. A failing unit is recorded in the BatchSummary and never
// stops its siblings. After cancellation no new unit starts and in-flight units finish
// on a context detached from the caller's, so no scan is left without resolution and no
// document half-written.
//
// Publish replays an NDJSON export through the sync engine's batch path, so documents
// built with SkipIndexSync can reach the index later without profiling again.
//
// # Usage
//
//	orch := pipeline.New(pipeline.Deps{
//	    Catalog:   catalog,
//	    Scanner:   scans,
//	    Extractor: extractor,
//	    Syncer:    engine,
//	    Log:       log,
//	})
//	summary, err := orch.Run(ctx, tables, cfg.Pipeline.Options())
//	os.Exit(summary.ExitCode())
package pipeline
