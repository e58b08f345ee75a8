package credential

import "context"

// Source supplies the bearer token for outbound requests.
type Source interface {
	AccessToken(ctx context.Context) (string, bool)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (string, bool)

// AccessToken calls f.
func (f SourceFunc) AccessToken(ctx context.Context) (string, bool) {
	return f(ctx)
}

var (
	_ Source = (*Store)(nil)
	_ Source = SourceFunc(nil)
)
