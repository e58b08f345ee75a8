// Package credential stores authentication tokens with expiry.
//
// A Store keeps records in up to two kvstore tiers chosen at construction:
// a volatile tier (process memory) and a durable tier. Writes go to every
// configured tier so durable records survive a restart; reads consult the
// volatile tier first. Records carry an optional expiry;
// an expired record is removed the first time it is read and reported as
// absent. Tier faults are logged and degrade to "not stored".
//
// Token values are never logged.
package credential
