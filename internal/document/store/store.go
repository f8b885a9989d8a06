// Package store defines document persistence. Implementations report
// infrastructure facts through pkg/platform/sentinel; the service layer
// translates them into domain errors.
package store

import (
	"context"

	"signet/internal/document/models"
	id "signet/pkg/domain"
)

// DocumentStore is the persistence contract for documents.
//
// Update performs an optimistic compare-and-swap on Revision: the write only
// lands when the stored revision matches the one on the passed document, and
// a successful write increments it in place. A mismatch returns
// sentinel.ErrConflict.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	// ListByOwner returns the owner's documents newest-first by creation time.
	ListByOwner(ctx context.Context, ownerID id.UserID) ([]*models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	// Delete is transaction-aware: with a transaction in context the row
	// delete joins it.
	Delete(ctx context.Context, docID id.DocumentID) error
}
