package token

import (
	"signet/internal/platform/middleware"
)

// MiddlewareAdapter bridges the token service to the middleware's validator
// interface without the middleware importing this package's types.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(service *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) Validate(tokenString string) (*middleware.TokenClaims, error) {
	validated, err := a.service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.TokenClaims{
		UserID: validated.UserID,
		JTI:    validated.JTI,
	}, nil
}
