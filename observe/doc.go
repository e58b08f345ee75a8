// Package observe provides the logging, tracing and metrics primitives used
// across the client core.
//
// A structured logger built WithRedactor passes every message and field value
// through the redactor before writing, and fields with credential-like names
// are always masked. Tracing and metrics are OpenTelemetry based and are
// no-ops unless enabled.
package observe
