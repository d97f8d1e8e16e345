// Package remote is the JSON-over-HTTP transport shared by the scan service and search
// index clients.
//
// It classifies every failure into the retry taxonomy so callers can hand requests to
// retry.Run unchanged:
//
//   - 401, 403: ErrPermission, permanent
//   - 404: ErrNotFound, permanent
//   - 409: ErrAlreadyExists, permanent
//   - other 4xx: permanent
//   - 429, 5xx and network errors: transient
//
// Rate limiting and retries are the caller's concern.
package remote
