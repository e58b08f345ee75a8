// Package redact scrubs personally identifiable information from text and
// structured values before they reach any log sink.
//
// Detection is pattern based and therefore heuristic. Each category (phone,
// email, national ID, card number, PIN, passport, bank account) can be toggled
// independently through Options, and extra rules can be appended.
//
// # Known false positives
//
// The bank account rule matches any run of 10 to 20 digits, including
// non-sensitive identifiers such as order numbers. The PIN rule matches any
// standalone run of 4 to 6 digits, including years ("2025") and small amounts.
// Both are kept on by default because missing a real identifier is worse than
// masking a harmless number; tune them per sink through Options.
//
// Personal names are never scrubbed by the default policy.
package redact
