package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodleaf/clientcore/auth"
)

// Pinger is a storage backend that can verify it is reachable.
// *kvstore.SQLite implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StorageChecker reports whether the durable storage tier responds. A nil
// Pinger means the tier is disabled, which is degraded rather than
// unhealthy: the client still works from memory.
type StorageChecker struct {
	db Pinger
}

// NewStorageChecker creates a StorageChecker for db.
func NewStorageChecker(db Pinger) *StorageChecker {
	return &StorageChecker{db: db}
}

// Name returns "storage".
func (c *StorageChecker) Name() string {
	return "storage"
}

// Check pings the storage tier.
func (c *StorageChecker) Check(ctx context.Context) Result {
	if c.db == nil {
		return Degraded("durable storage disabled; data will not survive restarts")
	}
	if err := c.db.Ping(ctx); err != nil {
		return Unhealthy("durable storage unreachable", fmt.Errorf("%w: %w", ErrCheckFailed, err))
	}
	return Healthy("durable storage reachable")
}

// SessionChecker reports the state of the signed-in session. Being signed
// out is degraded; a stored token that cannot be decoded is unhealthy.
type SessionChecker struct {
	session *auth.Session
}

// NewSessionChecker creates a SessionChecker.
func NewSessionChecker(session *auth.Session) *SessionChecker {
	return &SessionChecker{session: session}
}

// Name returns "session".
func (c *SessionChecker) Name() string {
	return "session"
}

// Check resolves the current identity.
func (c *SessionChecker) Check(ctx context.Context) Result {
	id, err := c.session.Identity(ctx)
	switch {
	case err == nil:
		details := map[string]any{}
		if !id.ExpiresAt.IsZero() {
			details["expires_at"] = id.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
		}
		return Healthy("signed in").WithDetails(details)
	case errors.Is(err, auth.ErrMissingCredentials):
		return Degraded("signed out")
	case errors.Is(err, auth.ErrTokenExpired):
		return Degraded("session expired")
	default:
		return Unhealthy("stored session is unreadable", err)
	}
}

// TierLister reports configured credential tiers. *credential.Store
// implements it.
type TierLister interface {
	Tiers() []string
}

// CredentialTierChecker reports which credential tiers are active. Only a
// durable tier keeps users signed in across restarts; without any tier
// credentials cannot be stored at all.
type CredentialTierChecker struct {
	store TierLister
}

// NewCredentialTierChecker creates a CredentialTierChecker.
func NewCredentialTierChecker(store TierLister) *CredentialTierChecker {
	return &CredentialTierChecker{store: store}
}

// Name returns "credentials".
func (c *CredentialTierChecker) Name() string {
	return "credentials"
}

// Check inspects the configured tiers.
func (c *CredentialTierChecker) Check(context.Context) Result {
	tiers := c.store.Tiers()
	details := map[string]any{"tiers": tiers}
	if len(tiers) == 0 {
		return Unhealthy("no credential tier configured", ErrCheckFailed).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%d credential tier(s) active", len(tiers))).WithDetails(details)
}

var (
	_ Checker = (*StorageChecker)(nil)
	_ Checker = (*SessionChecker)(nil)
	_ Checker = (*CredentialTierChecker)(nil)
)
