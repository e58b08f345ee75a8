package credential

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Well-known credential names.
const (
	AccessTokenName  = "access_token"
	RefreshTokenName = "refresh_token"
	IDTokenName      = "id_token"
)

// TokenSet is the token bundle returned by a login or refresh.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	IDToken      string

	// ExpiresIn applies to the access token. Zero falls back to the
	// token's exp claim.
	ExpiresIn time.Duration

	// RefreshExpiresIn applies to the refresh token. Zero never expires.
	RefreshExpiresIn time.Duration
}

// AccessToken returns the unexpired access token.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	return s.Get(ctx, AccessTokenName)
}

// RefreshToken returns the unexpired refresh token.
func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	return s.Get(ctx, RefreshTokenName)
}

// IDToken returns the unexpired ID token.
func (s *Store) IDToken(ctx context.Context) (string, bool) {
	return s.Get(ctx, IDTokenName)
}

// SetTokens stores every non-empty token in set.
func (s *Store) SetTokens(ctx context.Context, set TokenSet) error {
	var errs []error
	if set.AccessToken != "" {
		errs = append(errs, s.Set(ctx, AccessTokenName, set.AccessToken, set.ExpiresIn))
	}
	if set.RefreshToken != "" {
		errs = append(errs, s.Set(ctx, RefreshTokenName, set.RefreshToken, set.RefreshExpiresIn))
	}
	if set.IDToken != "" {
		errs = append(errs, s.Set(ctx, IDTokenName, set.IDToken, 0))
	}
	return errors.Join(errs...)
}

// ClearTokens removes the access, refresh and ID tokens.
func (s *Store) ClearTokens(ctx context.Context) {
	for _, name := range []string{AccessTokenName, RefreshTokenName, IDTokenName} {
		s.Remove(ctx, name)
	}
}

// IsAuthenticated reports whether an unexpired access token is stored.
func (s *Store) IsAuthenticated(ctx context.Context) bool {
	return s.IsValid(ctx, AccessTokenName)
}

// tokenExpiry reads the exp claim of a JWT without verifying its
// signature. ok is false for non-JWT values and tokens without exp.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
