// Package metrics exposes prometheus counters for a sync run.
//
// A Recorder owns its own registry so runs and tests never share state. The pipeline is
// a batch job without an HTTP surface, so the registry is written once at the end of a run
// in the node_exporter textfile format (see WriteTextfile).
package metrics
