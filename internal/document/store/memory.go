package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"signet/internal/document/models"
	id "signet/pkg/domain"
	"signet/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded map store used for unit tests and local
// development. Documents are cloned on every boundary crossing so callers
// never share memory with the store.
type InMemory struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]*models.Document
}

func NewInMemory() *InMemory {
	return &InMemory{docs: make(map[id.DocumentID]*models.Document)}
}

func (s *InMemory) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.docs[doc.ID] = cloneDocument(doc)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (s *InMemory) ListByOwner(_ context.Context, ownerID id.UserID) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Document
	for _, doc := range s.docs {
		if doc.OwnerID == ownerID {
			out = append(out, cloneDocument(doc))
		}
	}
	slices.SortFunc(out, func(a, b *models.Document) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *InMemory) Update(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.docs[doc.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Revision != doc.Revision {
		return sentinel.ErrConflict
	}
	doc.Revision++
	s.docs[doc.ID] = cloneDocument(doc)
	return nil
}

func (s *InMemory) Delete(_ context.Context, docID id.DocumentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[docID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.docs, docID)
	return nil
}

func cloneDocument(doc *models.Document) *models.Document {
	clone := *doc
	clone.StatusHistory = slices.Clone(doc.StatusHistory)
	clone.Tags = slices.Clone(doc.Tags)
	if doc.Metadata != nil {
		clone.Metadata = maps.Clone(doc.Metadata)
	}
	if doc.Signature.Payload != nil {
		clone.Signature.Payload = maps.Clone(doc.Signature.Payload)
	}
	return &clone
}
