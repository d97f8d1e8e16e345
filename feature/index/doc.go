// Package index is the HTTP client for the remote search index.
//
// Documents live under /indexes/{name}/documents/{id}. The client only maps the REST
// surface onto reconcile.Index; hash comparison and retries happen in core/reconcile.
package index
