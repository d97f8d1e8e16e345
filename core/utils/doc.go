// Package utils provides common utility functions for the metadata-sync application.
// It includes loose-typed value conversion used when decoding profiling payloads and
// scanning aggregation query results, where the same statistic may arrive as a number,
// a numeric string, or raw driver bytes.
package utils
