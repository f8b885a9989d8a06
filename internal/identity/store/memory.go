package store

import (
	"context"
	"strings"
	"sync"

	"signet/internal/identity/models"
	id "signet/pkg/domain"
	"signet/pkg/platform/sentinel"
)

// InMemory keeps users in maps guarded by a mutex. It intentionally favors
// clarity over performance and is the development and test default.
type InMemory struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[id.UserID]*models.User)}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if user.Email != "" && strings.EqualFold(existing.Email, user.Email) {
			return sentinel.ErrAlreadyUsed
		}
		if user.ExternalID != "" && existing.ExternalID == user.ExternalID {
			return sentinel.ErrAlreadyUsed
		}
	}

	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email != "" && strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByExternalID(_ context.Context, externalID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.ExternalID != "" && user.ExternalID == externalID {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByShopDomain(_ context.Context, shopDomain string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.ShopDomain != "" && strings.EqualFold(user.ShopDomain, shopDomain) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}
