// Package profile produces canonical table profiles.
//
// The Extractor prefers the managed scan result. It falls back to the FallbackProfiler,
// which runs read-only aggregation queries, when the scan is absent, failed, unfinished
// (including timeouts), older than the freshness window, or when managed scans are
// disabled.
//
// # Field mapping
//
// Scan payloads differ between API versions. Mappings is a versioned table from
// canonical attributes to ordered alias paths; DetectMapping selects the entry by a
// marker path. Adding support for a new payload shape means adding one entry.
package profile
