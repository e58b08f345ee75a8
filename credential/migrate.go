package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodleaf/clientcore/kvstore"
	"github.com/goodleaf/clientcore/observe"
)

// legacyNames maps plaintext keys written by older clients to managed
// credential names.
var legacyNames = []struct {
	legacy  string
	managed string
}{
	{AccessTokenName, AccessTokenName},
	{RefreshTokenName, RefreshTokenName},
	{IDTokenName, IDTokenName},
	{"token", AccessTokenName},
}

// MigrateLegacy moves plaintext tokens from legacy into the store and
// deletes the legacy copies. A name that already holds a managed value
// keeps it. Running it again is a no-op. It returns the number of values
// moved.
func (s *Store) MigrateLegacy(ctx context.Context, legacy kvstore.Store) (int, error) {
	if legacy == nil {
		return 0, nil
	}

	moved := 0
	var errs []error
	for _, n := range legacyNames {
		value, ok, err := legacy.Get(ctx, n.legacy)
		if err != nil {
			errs = append(errs, fmt.Errorf("credential: read legacy %s: %w", n.legacy, err))
			continue
		}
		if !ok {
			continue
		}

		if value != "" && !s.IsValid(ctx, n.managed) {
			if err := s.Set(ctx, n.managed, value, 0); err != nil {
				// Keep the legacy copy so a later run can retry.
				errs = append(errs, err)
				continue
			}
			moved++
		}

		if err := legacy.Remove(ctx, n.legacy); err != nil {
			errs = append(errs, fmt.Errorf("credential: remove legacy %s: %w", n.legacy, err))
		}
	}

	if moved > 0 {
		s.logger.Info(ctx, "migrated legacy credentials", observe.F("count", moved))
	}
	return moved, errors.Join(errs...)
}
