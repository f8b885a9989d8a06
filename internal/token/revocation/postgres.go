package revocation

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresList persists revoked token jtis in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE token_revocations (
//	    jti        TEXT PRIMARY KEY,
//	    expires_at TIMESTAMPTZ NOT NULL
//	);
type PostgresList struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresOption configures a PostgresList instance.
type PostgresOption func(*PostgresList)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(l *PostgresList) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func NewPostgresList(db *sql.DB, opts ...PostgresOption) *PostgresList {
	l := &PostgresList{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func (l *PostgresList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	expiresAt := l.clock().Add(ttl)
	query := `
		INSERT INTO token_revocations (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
	`
	if _, err := l.db.ExecContext(ctx, query, jti, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (l *PostgresList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	var expiresAt time.Time
	err := l.db.QueryRowContext(ctx, `SELECT expires_at FROM token_revocations WHERE jti = $1`, jti).Scan(&expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	if l.clock().After(expiresAt) {
		return false, nil
	}
	return true, nil
}
