// Package kvstore provides the key-value storage tiers used by the cache and
// credential layers: a volatile in-memory tier and a durable SQLite tier.
// Both satisfy Store and are chosen at construction time.
package kvstore
