package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/goodleaf/clientcore/auth"
	"github.com/goodleaf/clientcore/credential"
	"github.com/goodleaf/clientcore/observe"
	"github.com/goodleaf/clientcore/resilience"
	"github.com/goodleaf/clientcore/settings"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 1 << 20

// Client calls the backend REST API.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: every method honours ctx cancellation and deadlines.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	middleware *observe.Middleware
	userAgent  string
}

type clientConfig struct {
	httpClient     *http.Client
	timeout        time.Duration
	tokens         credential.Source
	onUnauthorized func(*http.Request)
	middleware     *observe.Middleware
	userAgent      string
}

// Option configures a Client.
type Option func(*clientConfig)

// WithHTTPClient sets the underlying HTTP client. Its Transport is wrapped
// to add credentials.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = c
	}
}

// WithTimeout bounds each request. Default: resilience.DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.timeout = d
	}
}

// WithTokens authenticates requests with the stored access token.
func WithTokens(src credential.Source) Option {
	return func(cfg *clientConfig) {
		cfg.tokens = src
	}
}

// WithUnauthorizedHandler is called after any 401 response.
func WithUnauthorizedHandler(fn func(*http.Request)) Option {
	return func(cfg *clientConfig) {
		cfg.onUnauthorized = fn
	}
}

// WithMiddleware traces, measures and logs every request.
func WithMiddleware(m *observe.Middleware) Option {
	return func(cfg *clientConfig) {
		cfg.middleware = m
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cfg *clientConfig) {
		cfg.userAgent = ua
	}
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	cfg := clientConfig{timeout: resilience.DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	hc := &http.Client{}
	if cfg.httpClient != nil {
		copied := *cfg.httpClient
		hc = &copied
	}
	if cfg.timeout > 0 {
		hc.Timeout = cfg.timeout
	}
	hc.Transport = &auth.Transport{
		Base:           hc.Transport,
		Tokens:         cfg.tokens,
		OnUnauthorized: cfg.onUnauthorized,
	}

	return &Client{
		baseURL:    u,
		httpClient: hc,
		middleware: cfg.middleware,
		userAgent:  cfg.userAgent,
	}, nil
}

// request is one backend call.
type request struct {
	method string
	path   string
	body   any
	out    any
}

func (c *Client) do(ctx context.Context, name, key string, r *request) error {
	fn := func(ctx context.Context, _ observe.Operation) error {
		return c.send(ctx, r)
	}
	if c.middleware != nil {
		fn = c.middleware.Wrap(fn)
	}
	return fn(ctx, observe.Operation{Component: "api", Name: name, Key: key})
}

func (c *Client) send(ctx context.Context, r *request) error {
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL.String()+r.path, body)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, r.method, r.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrRequestFailed, r.path, err)
	}
	return decodeResponse(resp.StatusCode, raw, r.out)
}

// decodeResponse maps a response to out or an *Error. Bodies may be the
// resource itself, a {"success":true,"data":...} envelope, or a
// {"success":false,"message":...} rejection.
func decodeResponse(status int, raw []byte, out any) error {
	if status < 200 || status > 299 {
		return &Error{Status: status, Message: serverMessage(raw)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("%w: malformed response body", ErrRequestFailed)
	}

	payload := raw
	if success := gjson.GetBytes(raw, "success"); success.Exists() {
		if !success.Bool() {
			return &Error{Status: status, Message: serverMessage(raw), Rejected: true}
		}
		if data := gjson.GetBytes(raw, "data"); data.Exists() {
			payload = []byte(data.Raw)
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

// serverMessage extracts a human-readable message from an error body.
func serverMessage(raw []byte) string {
	if !gjson.ValidBytes(raw) {
		return ""
	}
	for _, path := range []string{"message", "error.message", "error"} {
		if v := gjson.GetBytes(raw, path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// Loan fetches one loan.
func (c *Client) Loan(ctx context.Context, id string) (Loan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Loan{}, ErrInvalidLoanID
	}
	var loan Loan
	err := c.do(ctx, "get_loan", id, &request{
		method: http.MethodGet,
		path:   "/api/v1/loans/" + url.PathEscape(id),
		out:    &loan,
	})
	return loan, err
}

const notificationSettingsPath = "/api/v1/users/me/notification-settings"

// NotificationSettings fetches the user's notification settings.
func (c *Client) NotificationSettings(ctx context.Context) (settings.NotificationSettings, error) {
	var s settings.NotificationSettings
	err := c.do(ctx, "get_notification_settings", "", &request{
		method: http.MethodGet,
		path:   notificationSettingsPath,
		out:    &s,
	})
	return s, err
}

// UpdateNotificationSettings replaces the user's notification settings and
// returns the canonical stored value. A response without a body echoes
// the submitted settings.
func (c *Client) UpdateNotificationSettings(ctx context.Context, s settings.NotificationSettings) (settings.NotificationSettings, error) {
	out := s
	err := c.do(ctx, "update_notification_settings", "", &request{
		method: http.MethodPut,
		path:   notificationSettingsPath,
		body:   s,
		out:    &out,
	})
	if err != nil {
		return settings.NotificationSettings{}, err
	}
	return out, nil
}

var _ settings.Backend = (*Client)(nil)
