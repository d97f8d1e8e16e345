// Package model defines the data model shared by the profiling and index sync pipeline.
//
// # Identity
//
// A TableDescriptor (project, dataset, table) is the immutable identity of a cataloged
// table. Every downstream key (scan resource, document id, export line) is derived from it.
//
// # Profiles
//
// A TableProfile is produced either from a managed scan (Source = MANAGED_SCAN) or from
// direct aggregation queries (Source = FALLBACK_QUERY). Fallback profiles that could not
// compute every column are flagged Partial.
//
// # Documents
//
// A MetadataDocument is rebuilt every run and synchronized to the search index. Its ID
// never depends on time; its ContentHash depends only on semantic content.
package model
