// Package integrity provides preflight health checks for a sync run.
//
// # Checks Provided
//
//   - Storage: Checks that the export bucket exists (creating it with fix) and counts
//     the lineage snapshots under the lineage prefix.
//   - Database: Runs a read-only version query through the query engine and verifies that every
//     selected table is present in the schema catalog.
package integrity
