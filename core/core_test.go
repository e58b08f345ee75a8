package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/goodleaf/clientcore/api"
	"github.com/goodleaf/clientcore/cache"
	"github.com/goodleaf/clientcore/config"
	"github.com/goodleaf/clientcore/credential"
	"github.com/goodleaf/clientcore/health"
	"github.com/goodleaf/clientcore/kvstore"
	"github.com/goodleaf/clientcore/mutation"
	"github.com/goodleaf/clientcore/observe"
	"github.com/goodleaf/clientcore/settings"
)

// backend is a fake loan API.
type backend struct {
	loanCalls atomic.Int32
	status    atomic.Int32 // forced status for every request when non-zero

	mu       sync.Mutex
	auth     []string
	settings settings.NotificationSettings
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.auth = append(b.auth, r.Header.Get("Authorization"))
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if code := int(b.status.Load()); code != 0 {
		w.WriteHeader(code)
		_, _ = io.WriteString(w, `{"message":"nope"}`)
		return
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/api/v1/loans/"):
		b.loanCalls.Add(1)
		id := strings.TrimPrefix(r.URL.Path, "/api/v1/loans/")
		_ = json.NewEncoder(w).Encode(api.Loan{ID: id, Status: "active", Principal: 25000, TermMonths: 36})
	case r.URL.Path == "/api/v1/users/me/notification-settings" && r.Method == http.MethodGet:
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(b.settings)
	case r.URL.Path == "/api/v1/users/me/notification-settings" && r.Method == http.MethodPut:
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&b.settings)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": b.settings})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *backend) lastAuth() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.auth) == 0 {
		return ""
	}
	return b.auth[len(b.auth)-1]
}

func newBackend(t *testing.T) (*backend, string) {
	t.Helper()
	b := &backend{settings: settings.Defaults()}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, srv.URL
}

func testConfig(t *testing.T, baseURL string, env map[string]string) config.Config {
	t.Helper()
	environ := map[string]string{
		"GOODLEAF_API_BASE_URL":           baseURL,
		"GOODLEAF_API_TIMEOUT":            "2s",
		"GOODLEAF_CACHE_READ_RETRIES":     "0",
		"GOODLEAF_CACHE_WRITE_RETRIES":    "0",
		"GOODLEAF_TELEMETRY_LOG_LEVEL":    "error",
		"GOODLEAF_TELEMETRY_SERVICE_NAME": "clientcore-test",
	}
	for k, v := range env {
		environ[k] = v
	}
	cfg, err := config.LoadFrom(environ)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	return cfg
}

func newTestClient(t *testing.T, cfg config.Config, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithLogger(observe.NopLogger())}, opts...)
	c, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func durableEnv(t *testing.T) map[string]string {
	t.Helper()
	return map[string]string{
		"GOODLEAF_STORAGE_PATH":           filepath.Join(t.TempDir(), "client.db"),
		"GOODLEAF_STORAGE_SECURE_DURABLE": "true",
	}
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.API.BaseURL = "ftp://example.com"

	if _, err := New(context.Background(), cfg); !errors.Is(err, config.ErrInvalidBaseURL) {
		t.Errorf("New() error = %v, want ErrInvalidBaseURL", err)
	}
}

func TestClient_LoanIsCachedAndPersisted(t *testing.T) {
	b, url := newBackend(t)
	env := durableEnv(t)
	ctx := context.Background()

	c, err := New(ctx, testConfig(t, url, env), WithLogger(observe.NopLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	first, err := c.Loan(ctx, "GL-1")
	if err != nil || first.Source != cache.SourceNetwork || first.Data.Principal != 25000 {
		t.Fatalf("first Loan() = %+v, %v", first, err)
	}
	second, err := c.Loan(ctx, "GL-1")
	if err != nil || second.Source != cache.SourceMemory {
		t.Fatalf("second Loan() = %+v, %v", second, err)
	}
	if got := b.loanCalls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened := newTestClient(t, testConfig(t, url, env))
	third, err := reopened.Loan(ctx, "GL-1")
	if err != nil || third.Source != cache.SourcePersisted || third.Data.ID != "GL-1" {
		t.Fatalf("Loan() after restart = %+v, %v", third, err)
	}
	if got := b.loanCalls.Load(); got != 1 {
		t.Errorf("backend calls after restart = %d, want 1", got)
	}

	if _, err := reopened.Loan(ctx, "  "); !errors.Is(err, api.ErrInvalidLoanID) {
		t.Errorf("blank id error = %v", err)
	}
}

func TestClient_StaleLoanServedWhenBackendFails(t *testing.T) {
	b, url := newBackend(t)
	c := newTestClient(t, testConfig(t, url, nil))
	ctx := context.Background()

	if _, err := c.Loan(ctx, "GL-2"); err != nil {
		t.Fatalf("Loan() error = %v", err)
	}
	b.status.Store(http.StatusServiceUnavailable)

	res, err := c.RefreshLoan(ctx, "GL-2")
	if err == nil {
		t.Fatal("RefreshLoan() error = nil, want backend failure")
	}
	if !res.Stale || res.Data.ID != "GL-2" {
		t.Errorf("RefreshLoan() = %+v, want stale copy", res)
	}
}

func TestClient_SignInAuthenticatesRequests(t *testing.T) {
	b, url := newBackend(t)
	c := newTestClient(t, testConfig(t, url, nil))
	ctx := context.Background()

	access := signedToken(t, jwt.MapClaims{"sub": "borrower-7", "exp": time.Now().Add(time.Hour).Unix()})
	if err := c.SignIn(ctx, credential.TokenSet{AccessToken: access, RefreshToken: "r-1"}); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if _, err := c.Loan(ctx, "GL-3"); err != nil {
		t.Fatalf("Loan() error = %v", err)
	}
	if got := b.lastAuth(); got != "Bearer "+access {
		t.Errorf("Authorization = %q", got)
	}

	id, err := c.Identity(ctx)
	if err != nil || id.Principal != "borrower-7" {
		t.Errorf("Identity() = %+v, %v", id, err)
	}
}

func TestClient_UnauthorizedClearsTokens(t *testing.T) {
	b, url := newBackend(t)
	c := newTestClient(t, testConfig(t, url, nil))
	ctx := context.Background()

	_ = c.SignIn(ctx, credential.TokenSet{AccessToken: "revoked", RefreshToken: "r-1"})
	b.status.Store(http.StatusUnauthorized)

	if _, err := c.Loan(ctx, "GL-4"); err == nil {
		t.Fatal("Loan() error = nil, want 401")
	}
	if c.Credentials().IsAuthenticated(ctx) {
		t.Error("tokens survived a 401")
	}

	var found bool
	for _, e := range c.Audit().Entries() {
		if strings.Contains(e.Message, "tokens cleared") {
			found = true
		}
	}
	if !found {
		t.Errorf("audit trail = %+v, want token clearing recorded", c.Audit().Entries())
	}
}

func TestClient_SignOutRemovesUserData(t *testing.T) {
	_, url := newBackend(t)
	c := newTestClient(t, testConfig(t, url, durableEnv(t)))
	ctx := context.Background()

	_ = c.SignIn(ctx, credential.TokenSet{AccessToken: "a-1"})
	if _, err := c.Loan(ctx, "GL-5"); err != nil {
		t.Fatalf("Loan() error = %v", err)
	}
	if _, err := c.Settings().Load(ctx); err != nil {
		t.Fatalf("Settings().Load() error = %v", err)
	}

	c.SignOut(ctx)

	if c.Credentials().IsAuthenticated(ctx) {
		t.Error("still authenticated after SignOut")
	}
	if _, ok := cache.GetData[api.Loan](ctx, c.Queries(), c.LoanKey("GL-5"), cache.Persist()); ok {
		t.Error("loan data survived SignOut")
	}
	if _, ok := cache.GetData[settings.NotificationSettings](ctx, c.Queries(), c.Settings().CacheKey(), cache.Persist()); ok {
		t.Error("settings survived SignOut")
	}
}

func TestClient_SettingsToggleIsAuditedAndNotified(t *testing.T) {
	b, url := newBackend(t)

	var (
		mu    sync.Mutex
		notes []mutation.Notification
	)
	notifier := mutation.NotifierFunc(func(_ context.Context, n mutation.Notification) {
		mu.Lock()
		notes = append(notes, n)
		mu.Unlock()
	})
	c := newTestClient(t, testConfig(t, url, nil), WithNotifier(notifier))
	ctx := context.Background()

	if _, err := c.Settings().Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	outcome, err := c.Settings().Toggle(ctx, settings.FieldSMS)
	if err != nil || outcome != mutation.OutcomeCommitted {
		t.Fatalf("Toggle() = %v, %v", outcome, err)
	}

	b.mu.Lock()
	sms := b.settings.SMSNotifications
	b.mu.Unlock()
	if !sms {
		t.Error("backend did not receive the toggle")
	}

	mu.Lock()
	if len(notes) != 1 || notes[0].Outcome != mutation.OutcomeCommitted {
		t.Errorf("notifications = %+v", notes)
	}
	mu.Unlock()

	entries := c.Audit().Entries()
	if len(entries) == 0 {
		t.Fatal("no audit entry for the mutation")
	}
	last := entries[len(entries)-1]
	data, _ := last.Data.(map[string]any)
	if data["outcome"] != "committed" || data["key"] != settings.MutationKey {
		t.Errorf("audit entry = %+v", last)
	}
}

func TestClient_Health(t *testing.T) {
	_, url := newBackend(t)
	ctx := context.Background()

	memOnly := newTestClient(t, testConfig(t, url, nil))
	report := memOnly.Health(ctx)
	if report.Status != health.StatusDegraded.String() {
		t.Errorf("memory-only status = %q, want degraded", report.Status)
	}
	if report.Checks["storage"].Status != "degraded" || report.Checks["session"].Status != "degraded" {
		t.Errorf("checks = %+v", report.Checks)
	}

	durable := newTestClient(t, testConfig(t, url, durableEnv(t)))
	access := signedToken(t, jwt.MapClaims{"sub": "borrower-7", "exp": time.Now().Add(time.Hour).Unix()})
	_ = durable.SignIn(ctx, credential.TokenSet{AccessToken: access})

	report = durable.Health(ctx)
	if report.Status != health.StatusHealthy.String() {
		t.Errorf("durable status = %q, checks = %+v", report.Status, report.Checks)
	}
}

func TestClient_HandleTrigger(t *testing.T) {
	b, url := newBackend(t)
	c := newTestClient(t, testConfig(t, url, map[string]string{
		"GOODLEAF_CACHE_REFETCH_ON_RECONNECT": "true",
	}))
	ctx := context.Background()

	_, _ = c.Loan(ctx, "GL-6")
	if c.HandleTrigger(ctx, cache.TriggerWindowFocus) {
		t.Error("window focus invalidated with refetch disabled")
	}
	if !c.HandleTrigger(ctx, cache.TriggerReconnect) {
		t.Error("reconnect did not invalidate")
	}

	res, err := c.Loan(ctx, "GL-6")
	if err != nil || res.Source != cache.SourceNetwork {
		t.Errorf("Loan() after reconnect = %+v, %v", res, err)
	}
	if got := b.loanCalls.Load(); got != 2 {
		t.Errorf("backend calls = %d, want 2", got)
	}
}

func TestNew_MigratesLegacyTokens(t *testing.T) {
	_, url := newBackend(t)
	env := durableEnv(t)
	ctx := context.Background()

	legacy, err := kvstore.OpenSQLite(env["GOODLEAF_STORAGE_PATH"])
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	_ = legacy.Set(ctx, "token", "legacy-access")
	_ = legacy.Close()

	c := newTestClient(t, testConfig(t, url, env))
	if got, ok := c.Credentials().AccessToken(ctx); !ok || got != "legacy-access" {
		t.Errorf("AccessToken() = %q, %v", got, ok)
	}
}

func TestNew_LogsAreRedacted(t *testing.T) {
	b, url := newBackend(t)
	b.status.Store(http.StatusBadRequest)

	var buf bytes.Buffer
	cfg := testConfig(t, url, map[string]string{"GOODLEAF_TELEMETRY_LOG_LEVEL": "debug"})
	logger := observe.NewLoggerWithWriter("debug", &buf)
	c := newTestClient(t, cfg, WithLogger(logger))
	ctx := context.Background()

	c.Audit().Warn(ctx, "borrower 0912345678 contacted support", map[string]any{"email": "an@example.com"})
	_, _ = c.Loan(ctx, "GL-7")

	out := buf.String()
	if strings.Contains(out, "0912345678") || strings.Contains(out, "an@example.com") {
		t.Errorf("log leaked PII:\n%s", out)
	}
	if !strings.Contains(out, `"component":"audit"`) {
		t.Errorf("audit sink not wired:\n%s", out)
	}
}
