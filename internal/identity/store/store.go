// Package store persists user records. Implementations return sentinel
// errors for infrastructure facts; the service layer translates them into
// the domain taxonomy.
package store

import (
	"context"

	"signet/internal/identity/models"
	id "signet/pkg/domain"
)

// UserStore is interface-driven to keep the service testable and to allow
// swapping the in-memory and Postgres implementations without rewiring
// business code.
type UserStore interface {
	// Create fails with sentinel.ErrAlreadyUsed when the email or external
	// ID is already taken.
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	FindByShopDomain(ctx context.Context, shopDomain string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}
