// Package retry holds the error taxonomy and the single retry policy used for every
// remote call made by the pipeline.
//
// # Error kinds
//
//   - Config: a required setting is missing; fatal before any table is processed.
//   - Transient: network blips, throttling, 5xx responses; retried with backoff.
//   - Permanent: permission denied, not found after retry; never retried.
//
// Errors that carry no kind are treated as transient by Policy.Do, matching the
// behaviour of a network error surfacing from the HTTP transport.
//
// # Usage
//
//	policy := retry.DefaultPolicy()
//	res, err := retry.Run(ctx, policy, func() (*Resource, error) {
//	    return client.Get(ctx, id)
//	})
package retry
