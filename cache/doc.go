// Package cache provides the client's query cache.
//
// Keys are built by KeyRegistry as <prefix>:<namespace>:<parts...>.
// Fetch serves data from a memory tier with expire-after-access retention,
// then optionally from a durable Persisted tier, then from the network
// under the retry rules of a shared Policy. Data older than StaleTime is
// refetched; if that fails, the old data is returned marked Stale.
package cache
