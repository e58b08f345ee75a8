// Package auth attaches the signed-in user's credentials to outgoing
// requests and exposes who that user is.
//
// Tokens are read from a credential store. Claims are decoded without
// signature verification: the backend verifies every request, and the
// client only needs the subject and expiry for display and gating.
package auth
