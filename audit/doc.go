// Package audit keeps a bounded, redacted trail of notable client events.
//
// Every message and data payload is scrubbed before it is stored or
// emitted, so entries can be exported for support without leaking PII.
package audit
