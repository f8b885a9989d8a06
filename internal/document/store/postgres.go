package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"signet/internal/document/models"
	id "signet/pkg/domain"
	"signet/pkg/platform/sentinel"
	txcontext "signet/pkg/platform/tx"
)

// Postgres implements DocumentStore on PostgreSQL via lib/pq.
//
// Schema:
//
//	CREATE TABLE documents (
//	    id                 UUID PRIMARY KEY,
//	    owner_id           UUID NOT NULL,
//	    order_ref          TEXT NOT NULL DEFAULT '',
//	    file_name          TEXT NOT NULL,
//	    original_file_name TEXT NOT NULL,
//	    document_type      TEXT NOT NULL,
//	    storage_key        TEXT NOT NULL,
//	    file_size          BIGINT NOT NULL,
//	    mime_type          TEXT NOT NULL,
//	    file_hash          TEXT NOT NULL,
//	    signature          JSONB NOT NULL,
//	    status             TEXT NOT NULL,
//	    status_history     JSONB NOT NULL,
//	    expires_at         TIMESTAMPTZ,
//	    tags               TEXT[],
//	    description        TEXT NOT NULL DEFAULT '',
//	    metadata           JSONB,
//	    revision           BIGINT NOT NULL,
//	    uploaded_at        TIMESTAMPTZ NOT NULL,
//	    created_at         TIMESTAMPTZ NOT NULL,
//	    updated_at         TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX documents_owner_idx ON documents (owner_id, created_at DESC);
//	CREATE INDEX documents_status_idx ON documents (status);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, doc *models.Document) error {
	signature, history, metadata, err := marshalDocumentJSON(doc)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (
			id, owner_id, order_ref, file_name, original_file_name,
			document_type, storage_key, file_size, mime_type, file_hash,
			signature, status, status_history, expires_at, tags,
			description, metadata, revision, uploaded_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(doc.ID),
		uuid.UUID(doc.OwnerID),
		doc.OrderRef,
		doc.FileName,
		doc.OriginalFileName,
		string(doc.Type),
		doc.StorageKey,
		doc.FileSize,
		doc.MimeType,
		doc.FileHash,
		signature,
		string(doc.Status),
		history,
		nullTime(doc.ExpiresAt),
		pq.Array(doc.Tags),
		doc.Description,
		metadata,
		doc.Revision,
		doc.UploadedAt,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

const selectDocument = `
	SELECT id, owner_id, order_ref, file_name, original_file_name,
	       document_type, storage_key, file_size, mime_type, file_hash,
	       signature, status, status_history, expires_at, tags,
	       description, metadata, revision, uploaded_at, created_at, updated_at
	FROM documents
`

func (s *Postgres) FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, selectDocument+` WHERE id = $1`, uuid.UUID(docID))
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *Postgres) ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Document, error) {
	query := selectDocument + ` WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(ownerID))
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, doc *models.Document) error {
	signature, history, metadata, err := marshalDocumentJSON(doc)
	if err != nil {
		return err
	}

	query := `
		UPDATE documents
		SET order_ref = $2, document_type = $3, signature = $4, status = $5,
		    status_history = $6, expires_at = $7, tags = $8, description = $9,
		    metadata = $10, updated_at = $11, revision = revision + 1
		WHERE id = $1 AND revision = $12
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(doc.ID),
		doc.OrderRef,
		string(doc.Type),
		signature,
		string(doc.Status),
		history,
		nullTime(doc.ExpiresAt),
		pq.Array(doc.Tags),
		doc.Description,
		metadata,
		doc.UpdatedAt,
		doc.Revision,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if affected == 0 {
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`,
			uuid.UUID(doc.ID),
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check document existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	doc.Revision++
	return nil
}

func (s *Postgres) Delete(ctx context.Context, docID id.DocumentID) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM documents WHERE id = $1`, uuid.UUID(docID))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func marshalDocumentJSON(doc *models.Document) (signature, history, metadata []byte, err error) {
	signature, err = json.Marshal(doc.Signature)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal signature: %w", err)
	}
	history, err = json.Marshal(doc.StatusHistory)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal status history: %w", err)
	}
	if doc.Metadata != nil {
		metadata, err = json.Marshal(doc.Metadata)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal metadata: %w", err)
		}
	}
	return signature, history, metadata, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc       models.Document
		docID     uuid.UUID
		ownerID   uuid.UUID
		docType   string
		signature []byte
		status    string
		history   []byte
		expiresAt sql.NullTime
		tags      pq.StringArray
		metadata  []byte
	)
	if err := row.Scan(
		&docID,
		&ownerID,
		&doc.OrderRef,
		&doc.FileName,
		&doc.OriginalFileName,
		&docType,
		&doc.StorageKey,
		&doc.FileSize,
		&doc.MimeType,
		&doc.FileHash,
		&signature,
		&status,
		&history,
		&expiresAt,
		&tags,
		&doc.Description,
		&metadata,
		&doc.Revision,
		&doc.UploadedAt,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	doc.ID = id.DocumentID(docID)
	doc.OwnerID = id.UserID(ownerID)
	doc.Type = models.Type(docType)
	doc.Status = models.Status(status)
	doc.Tags = tags
	if expiresAt.Valid {
		doc.ExpiresAt = expiresAt.Time
	}
	if err := json.Unmarshal(signature, &doc.Signature); err != nil {
		return nil, fmt.Errorf("unmarshal signature: %w", err)
	}
	if err := json.Unmarshal(history, &doc.StatusHistory); err != nil {
		return nil, fmt.Errorf("unmarshal status history: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &doc, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
