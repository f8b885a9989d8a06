// Package handler exposes the authentication endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"signet/internal/http/shared"
	"signet/internal/identity/models"
	"signet/internal/identity/service"
	"signet/internal/platform/middleware"
	"signet/internal/token"
	id "signet/pkg/domain"
	dErrors "signet/pkg/domain-errors"
	"signet/pkg/requestcontext"
)

// Service defines the identity operations the handler depends on.
type Service interface {
	Register(ctx context.Context, params service.RegisterParams) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Get(ctx context.Context, userID id.UserID) (*models.User, error)
	Logout(ctx context.Context, userID id.UserID, jti string, remaining time.Duration) error
}

// Tokens defines the token operations the handler depends on.
type Tokens interface {
	Issue(userID id.UserID, ttl time.Duration) (string, error)
	Validate(tokenString string) (*token.ValidatedToken, error)
}

// Handler handles the /api/auth endpoints.
type Handler struct {
	logger      *slog.Logger
	identity    Service
	tokens      Tokens
	tokenTTL    time.Duration
	validator   middleware.TokenValidator
	revocations middleware.RevocationChecker
}

func New(
	identity Service,
	tokens Tokens,
	tokenTTL time.Duration,
	validator middleware.TokenValidator,
	revocations middleware.RevocationChecker,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		logger:      logger,
		identity:    identity,
		tokens:      tokens,
		tokenTTL:    tokenTTL,
		validator:   validator,
		revocations: revocations,
	}
}

// Register mounts the auth routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.revocations, h.logger))
		r.Post("/verify", h.handleVerify)
		r.Post("/logout", h.handleLogout)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	user, err := h.identity.Register(ctx, service.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.logFailure(ctx, "registration failed", err)
		shared.WriteError(w, err)
		return
	}

	tokenString, err := h.tokens.Issue(user.ID, h.tokenTTL)
	if err != nil {
		h.logFailure(ctx, "token issuance failed", err)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, authResponse{
		Token: tokenString,
		User:  toUserResponse(user),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	user, err := h.identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logFailure(ctx, "login failed", err)
		shared.WriteError(w, err)
		return
	}

	tokenString, err := h.tokens.Issue(user.ID, h.tokenTTL)
	if err != nil {
		h.logFailure(ctx, "token issuance failed", err)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, authResponse{
		Token: tokenString,
		User:  toUserResponse(user),
	})
}

// handleVerify confirms the presented token still maps to a live account.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.identity.Get(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.logFailure(ctx, "token verification failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]userResponse{"user": toUserResponse(user)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// RequireAuth already validated the token; re-parse it for the jti and
	// expiry that bound the revocation entry.
	raw, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	validated, err := h.tokens.Validate(raw)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	remaining := validated.ExpiresAt.Sub(requestcontext.Now(ctx))
	if err := h.identity.Logout(ctx, validated.UserID, validated.JTI, remaining); err != nil {
		h.logFailure(ctx, "logout failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}
