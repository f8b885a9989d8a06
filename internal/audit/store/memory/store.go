// Package memory provides the in-memory audit store: an insert-only slice
// guarded by a mutex. Entries are copied out on read so callers cannot mutate
// the trail.
package memory

import (
	"context"
	"sync"

	"signet/internal/audit"
	id "signet/pkg/domain"
)

type Store struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) ListByActor(_ context.Context, actorID id.UserID) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Entry
	for _, e := range s.entries {
		if e.ActorID == actorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ListByDocument(_ context.Context, documentID id.DocumentID) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Entry
	for _, e := range s.entries {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns a copy of every entry, oldest first. Test and compliance hook.
func (s *Store) All() []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
