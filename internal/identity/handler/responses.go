package handler

import (
	"time"

	"signet/internal/identity/models"
)

type userResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email,omitempty"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	ShopDomain  string     `json:"shop_domain,omitempty"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(user *models.User) userResponse {
	resp := userResponse{
		ID:         user.ID.String(),
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		ShopDomain: user.ShopDomain,
		Active:     user.Active,
		CreatedAt:  user.CreatedAt,
	}
	if !user.LastLoginAt.IsZero() {
		t := user.LastLoginAt
		resp.LastLoginAt = &t
	}
	return resp
}
