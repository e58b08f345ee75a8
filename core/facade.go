package core

import (
	"context"
	"strings"

	"github.com/goodleaf/clientcore/api"
	"github.com/goodleaf/clientcore/auth"
	"github.com/goodleaf/clientcore/cache"
	"github.com/goodleaf/clientcore/credential"
	"github.com/goodleaf/clientcore/health"
	"github.com/goodleaf/clientcore/mutation"
	"github.com/goodleaf/clientcore/observe"
)

// Cache namespaces owned by the signed-in user.
const (
	LoansNamespace = "loans"
	UserNamespace  = "user"
)

// LoanKey returns the cache key for one loan.
func (c *Client) LoanKey(id string) string {
	return c.keys.Build(LoansNamespace, "detail", id)
}

// Loan returns loan id, from cache when fresh. When the backend is
// unreachable and an older copy exists it is returned with Stale set,
// together with the error.
func (c *Client) Loan(ctx context.Context, id string) (cache.Result[api.Loan], error) {
	return c.fetchLoan(ctx, id, false)
}

// RefreshLoan fetches loan id from the backend regardless of freshness.
func (c *Client) RefreshLoan(ctx context.Context, id string) (cache.Result[api.Loan], error) {
	return c.fetchLoan(ctx, id, true)
}

func (c *Client) fetchLoan(ctx context.Context, id string, force bool) (cache.Result[api.Loan], error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return cache.Result[api.Loan]{}, api.ErrInvalidLoanID
	}
	opts := []cache.QueryOption{cache.Persist()}
	if force {
		opts = append(opts, cache.Force())
	}
	return cache.Fetch(ctx, c.queries, c.LoanKey(id), func(ctx context.Context) (api.Loan, error) {
		return c.api.Loan(ctx, id)
	}, opts...)
}

// HandleTrigger marks user data stale when the policy refetches on
// trigger, so the next read goes to the network. It reports whether
// anything was invalidated.
func (c *Client) HandleTrigger(ctx context.Context, trigger cache.Trigger) bool {
	if !c.queries.Policy().ShouldRefetch(trigger) {
		return false
	}
	n := c.queries.InvalidateNamespace(ctx, c.keys.Namespace(LoansNamespace))
	n += c.queries.InvalidateNamespace(ctx, c.keys.Namespace(UserNamespace))
	c.logger.Debug(ctx, "invalidated on trigger",
		observe.F("trigger", trigger.String()), observe.F("keys", n))
	return n > 0
}

// SignIn stores the tokens from a login.
func (c *Client) SignIn(ctx context.Context, tokens credential.TokenSet) error {
	if err := c.credentials.SetTokens(ctx, tokens); err != nil {
		c.audit.Error(ctx, "sign-in failed to store tokens", map[string]any{"error": err.Error()})
		return err
	}
	c.audit.Info(ctx, "signed in", nil)
	return nil
}

// SignOut clears tokens and removes the user's cached data from every
// tier.
func (c *Client) SignOut(ctx context.Context) {
	c.credentials.ClearTokens(ctx)
	removed := c.queries.RemoveNamespace(ctx, c.keys.Namespace(LoansNamespace))
	removed += c.queries.RemoveNamespace(ctx, c.keys.Namespace(UserNamespace))
	c.audit.Info(ctx, "signed out", map[string]any{"cache_keys_removed": removed})
}

// Identity returns the signed-in user.
func (c *Client) Identity(ctx context.Context) (*auth.Identity, error) {
	return c.session.Identity(ctx)
}

// Health runs every health check.
func (c *Client) Health(ctx context.Context) health.Report {
	return c.health.Report(ctx)
}

// auditNotifier records every settled mutation in the audit trail before
// forwarding it.
type auditNotifier struct {
	audit interface {
		Info(ctx context.Context, message string, data any)
		Warn(ctx context.Context, message string, data any)
	}
	next mutation.Notifier
}

func (n *auditNotifier) Notify(ctx context.Context, note mutation.Notification) {
	data := map[string]any{"key": note.Key, "outcome": note.Outcome.String()}
	if note.Err != nil {
		data["error"] = note.Err.Error()
		n.audit.Warn(ctx, note.Message, data)
	} else {
		n.audit.Info(ctx, note.Message, data)
	}
	if n.next != nil {
		n.next.Notify(ctx, note)
	}
}
