package auth

import (
	"net/http"

	"github.com/goodleaf/clientcore/credential"
)

// Transport is an http.RoundTripper that adds the stored access token as
// a bearer Authorization header.
//
// Requests that already carry Authorization are sent unchanged. When no
// token is stored the request goes out unauthenticated and the backend
// decides.
type Transport struct {
	// Base is the underlying transport. Nil uses http.DefaultTransport.
	Base http.RoundTripper

	// Tokens supplies the access token.
	Tokens credential.Source

	// OnUnauthorized, if set, is called after a 401 response.
	OnUnauthorized func(*http.Request)
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if t.Tokens != nil && req.Header.Get("Authorization") == "" {
		if token, ok := t.Tokens.AccessToken(req.Context()); ok {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := base.RoundTrip(req)
	if err == nil && resp.StatusCode == http.StatusUnauthorized && t.OnUnauthorized != nil {
		t.OnUnauthorized(req)
	}
	return resp, err
}

var _ http.RoundTripper = (*Transport)(nil)
