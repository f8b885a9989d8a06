// Package postgres persists audit entries in an insert-only table. The store
// is transaction-aware: when the caller has a transaction in context (the
// document delete path), the append joins it, so the entry and the deletion
// commit or roll back together.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"signet/internal/audit"
	id "signet/pkg/domain"
	txcontext "signet/pkg/platform/tx"
)

// Store implements audit.Store on PostgreSQL.
//
// Schema:
//
//	CREATE TABLE audit_entries (
//	    id            UUID PRIMARY KEY,
//	    actor_id      UUID,
//	    document_id   UUID,
//	    action        TEXT NOT NULL,
//	    resource      TEXT,
//	    resource_id   TEXT,
//	    changes       JSONB,
//	    ip_address    TEXT,
//	    user_agent    TEXT,
//	    status        TEXT NOT NULL,
//	    error_message TEXT,
//	    created_at    TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX audit_entries_actor_idx ON audit_entries (actor_id, created_at);
//	CREATE INDEX audit_entries_document_idx ON audit_entries (document_id, created_at);
//
// No UPDATE or DELETE statements exist against this table anywhere in the
// codebase.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	var changes []byte
	if entry.Changes != nil {
		var err error
		changes, err = json.Marshal(entry.Changes)
		if err != nil {
			return fmt.Errorf("marshal audit changes: %w", err)
		}
	}

	var actorID, documentID any
	if !entry.ActorID.IsNil() {
		actorID = uuid.UUID(entry.ActorID)
	}
	if !entry.DocumentID.IsNil() {
		documentID = uuid.UUID(entry.DocumentID)
	}

	query := `
		INSERT INTO audit_entries (
			id, actor_id, document_id, action, resource, resource_id,
			changes, ip_address, user_agent, status, error_message, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		actorID,
		documentID,
		string(entry.Action),
		entry.Resource,
		entry.ResourceID,
		changes,
		entry.IPAddress,
		entry.UserAgent,
		string(entry.Status),
		entry.ErrorMessage,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListByActor(ctx context.Context, actorID id.UserID) ([]audit.Entry, error) {
	query := selectEntries + ` WHERE actor_id = $1 ORDER BY created_at`
	return s.list(ctx, query, uuid.UUID(actorID))
}

func (s *Store) ListByDocument(ctx context.Context, documentID id.DocumentID) ([]audit.Entry, error) {
	query := selectEntries + ` WHERE document_id = $1 ORDER BY created_at`
	return s.list(ctx, query, uuid.UUID(documentID))
}

const selectEntries = `
	SELECT id, actor_id, document_id, action, resource, resource_id,
	       changes, ip_address, user_agent, status, error_message, created_at
	FROM audit_entries
`

func (s *Store) list(ctx context.Context, query string, arg any) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			entry      audit.Entry
			actorID    uuid.NullUUID
			documentID uuid.NullUUID
			changes    []byte
			action     string
			status     string
		)
		if err := rows.Scan(
			&entry.ID,
			&actorID,
			&documentID,
			&action,
			&entry.Resource,
			&entry.ResourceID,
			&changes,
			&entry.IPAddress,
			&entry.UserAgent,
			&status,
			&entry.ErrorMessage,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Action = audit.Action(action)
		entry.Status = audit.Outcome(status)
		if actorID.Valid {
			entry.ActorID = id.UserID(actorID.UUID)
		}
		if documentID.Valid {
			entry.DocumentID = id.DocumentID(documentID.UUID)
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &entry.Changes); err != nil {
				return nil, fmt.Errorf("unmarshal audit changes: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
