//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema holds every table the stores expect. Applied once at startup;
// individual suites truncate between tests.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id                     UUID PRIMARY KEY,
    email                  TEXT UNIQUE,
    phone                  TEXT,
    password_hash          TEXT,
    external_id            TEXT UNIQUE,
    external_access_token  TEXT,
    external_refresh_token TEXT,
    shop_domain            TEXT,
    first_name             TEXT,
    last_name              TEXT,
    profile_photo          TEXT,
    email_verified         BOOLEAN NOT NULL DEFAULT FALSE,
    phone_verified         BOOLEAN NOT NULL DEFAULT FALSE,
    active                 BOOLEAN NOT NULL DEFAULT TRUE,
    email_notifications    BOOLEAN NOT NULL DEFAULT TRUE,
    sms_notifications      BOOLEAN NOT NULL DEFAULT FALSE,
    last_login_at          TIMESTAMPTZ,
    created_at             TIMESTAMPTZ NOT NULL,
    updated_at             TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
    id                 UUID PRIMARY KEY,
    owner_id           UUID NOT NULL,
    order_ref          TEXT NOT NULL DEFAULT '',
    file_name          TEXT NOT NULL,
    original_file_name TEXT NOT NULL,
    document_type      TEXT NOT NULL,
    storage_key        TEXT NOT NULL,
    file_size          BIGINT NOT NULL,
    mime_type          TEXT NOT NULL,
    file_hash          TEXT NOT NULL,
    signature          JSONB NOT NULL,
    status             TEXT NOT NULL,
    status_history     JSONB NOT NULL,
    expires_at         TIMESTAMPTZ,
    tags               TEXT[],
    description        TEXT NOT NULL DEFAULT '',
    metadata           JSONB,
    revision           BIGINT NOT NULL,
    uploaded_at        TIMESTAMPTZ NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL,
    updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_owner_idx ON documents (owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS documents_status_idx ON documents (status);

CREATE TABLE IF NOT EXISTS audit_entries (
    id            UUID PRIMARY KEY,
    actor_id      UUID,
    document_id   UUID,
    action        TEXT NOT NULL,
    resource      TEXT,
    resource_id   TEXT,
    changes       JSONB,
    ip_address    TEXT,
    user_agent    TEXT,
    status        TEXT NOT NULL,
    error_message TEXT,
    created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_entries_actor_idx ON audit_entries (actor_id, created_at);
CREATE INDEX IF NOT EXISTS audit_entries_document_idx ON audit_entries (document_id, created_at);

CREATE TABLE IF NOT EXISTS token_revocations (
    jti        TEXT PRIMARY KEY,
    expires_at TIMESTAMPTZ NOT NULL
);
`

// PostgresContainer wraps a testcontainers Postgres instance with the schema
// already applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("signet_test"),
		tcpostgres.WithUsername("signet"),
		tcpostgres.WithPassword("signet"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// TruncateTables empties the named tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
