// Package lineage provides the optional lineage section of metadata documents, read
// from per-table snapshots in object storage.
package lineage
