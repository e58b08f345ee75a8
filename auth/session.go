package auth

import (
	"context"
	"time"
)

// TokenReader reads the current tokens. *credential.Store implements it.
type TokenReader interface {
	AccessToken(ctx context.Context) (string, bool)
	IDToken(ctx context.Context) (string, bool)
}

// Session resolves the signed-in user from stored tokens.
type Session struct {
	tokens TokenReader
	now    func() time.Time
}

// NewSession creates a Session over tokens. A nil now uses time.Now.
func NewSession(tokens TokenReader, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{tokens: tokens, now: now}
}

// Identity returns the current user. The ID token is preferred; the
// access token is used when no ID token is stored.
//
// Errors: ErrMissingCredentials when signed out, ErrTokenMalformed when
// neither token is a JWT, ErrTokenExpired when the token has lapsed.
func (s *Session) Identity(ctx context.Context) (*Identity, error) {
	if s == nil || s.tokens == nil {
		return nil, ErrMissingCredentials
	}

	token, ok := s.tokens.IDToken(ctx)
	if !ok {
		token, ok = s.tokens.AccessToken(ctx)
	}
	if !ok {
		return nil, ErrMissingCredentials
	}

	id, err := ParseIdentity(token)
	if err != nil {
		return nil, err
	}
	if id.IsExpired(s.now()) {
		return nil, ErrTokenExpired
	}
	return id, nil
}

// Attach resolves the current user and stores it in ctx.
func (s *Session) Attach(ctx context.Context) (context.Context, error) {
	id, err := s.Identity(ctx)
	if err != nil {
		return ctx, err
	}
	return WithIdentity(ctx, id), nil
}
