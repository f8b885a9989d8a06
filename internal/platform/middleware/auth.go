package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "signet/pkg/domain"
	"signet/pkg/requestcontext"
)

// TokenValidator defines the interface for validating bearer tokens.
type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// RevocationChecker reports whether a token was revoked (logout).
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenClaims represents the claims the middleware expects from the validator.
type TokenClaims struct {
	UserID id.UserID
	JTI    string
}

// RequireAuth rejects requests without a valid bearer token and injects the
// authenticated user ID into the context. When a revocation checker is
// configured, logged-out tokens are rejected even before expiry.
func RequireAuth(validator TokenValidator, revocations RevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims, ok := claimsFromRequest(r, validator, revocations)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access",
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}
			ctx = requestcontext.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the user identity when a valid token is present and
// silently proceeds as anonymous otherwise. Used by endpoints that personalize
// but do not require login, like public signature verification.
func OptionalAuth(validator TokenValidator, revocations RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, ok := claimsFromRequest(r, validator, revocations); ok {
				ctx := requestcontext.WithUserID(r.Context(), claims.UserID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func claimsFromRequest(r *http.Request, validator TokenValidator, revocations RevocationChecker) (*TokenClaims, bool) {
	const bearerPrefix = "Bearer "
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !ok || token == "" {
		return nil, false
	}
	claims, err := validator.Validate(token)
	if err != nil {
		return nil, false
	}
	if revocations != nil && claims.JTI != "" {
		revoked, err := revocations.IsRevoked(r.Context(), claims.JTI)
		if err != nil || revoked {
			return nil, false
		}
	}
	return claims, true
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"missing or invalid token"}`))
}
