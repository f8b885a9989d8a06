// Package revocation tracks logged-out token IDs until their natural expiry.
// Logout is the only mutation the auth surface makes to issued tokens, so the
// list only ever needs jti + TTL semantics.
package revocation

import (
	"context"
	"fmt"
	"time"

	"signet/pkg/platform/sentinel"
)

// List is the token revocation list contract shared by the memory, Redis and
// Postgres implementations.
type List interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
