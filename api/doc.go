// Package api is the client for the loan servicing backend.
//
// Each Client method makes exactly one HTTP request; retry and caching
// belong to the callers (cache.QueryCache and mutation.Coordinator).
// Failures come back as *Error for HTTP and application-level rejections,
// or wrap ErrRequestFailed for transport faults, so resilience.IsRetryable
// can classify them.
package api
