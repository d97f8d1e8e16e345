// Package document builds the canonical metadata document of a table.
//
// The document id depends only on the table identity. The content hash covers the
// semantic sections (table, columns, quality, statistics, lineage) serialized as JSON
// with floats rounded to six decimals, so unchanged data always hashes identically and
// the index sync can skip the write.
package document
