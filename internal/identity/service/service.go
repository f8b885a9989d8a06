// Package service orchestrates identity lifecycle: registration, credential
// verification, logout, and the upserts driven by the commerce bridge.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"signet/internal/audit"
	"signet/internal/identity/models"
	"signet/internal/identity/secrets"
	"signet/internal/identity/store"
	"signet/internal/platform/metrics"
	"signet/internal/token/revocation"
	id "signet/pkg/domain"
	dErrors "signet/pkg/domain-errors"
	"signet/pkg/platform/sentinel"
	"signet/pkg/requestcontext"
)

// Service owns user records and credential verification.
type Service struct {
	users       store.UserStore
	auditor     *audit.Publisher
	revocations revocation.List
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

type serviceConfig struct {
	revocations revocation.List
	metrics     *metrics.Metrics
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

// WithRevocations wires the logout revocation list.
func WithRevocations(list revocation.List) Option {
	return func(c *serviceConfig) { c.revocations = list }
}

// WithMetrics wires the Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

func NewService(users store.UserStore, auditor *audit.Publisher, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		users:       users,
		auditor:     auditor,
		revocations: cfg.revocations,
		metrics:     cfg.metrics,
		tracer:      otel.Tracer("signet/identity"),
	}
}

// RegisterParams carries local registration input.
type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a local-credential user. Duplicate emails surface as a
// duplicate-key failure; exactly one record exists afterwards either way.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "identity.Register")
	defer span.End()

	email := models.NormalizeEmail(params.Email)
	if email == "" || params.Password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "email and password are required")
	}

	user, err := models.NewUser(id.NewUserID(), email, "", "", requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	user.FirstName = strings.TrimSpace(params.FirstName)
	user.LastName = strings.TrimSpace(params.LastName)

	hash, err := secrets.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeDuplicate, "user already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.metrics.IncrementUsersRegistered()
	return user, nil
}

// Login verifies credentials and stamps the login time. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "identity.Login")
	defer span.End()

	if email == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Burn a hash comparison so a missing account rejects in the
			// same time as a wrong password.
			secrets.VerifyDummy(password)
			return nil, s.loginFailed(ctx, email, "unknown email")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	if !user.Active {
		return nil, s.loginFailed(ctx, email, "account deactivated")
	}
	if user.PasswordHash == "" {
		// External-only identity; it has no local password to verify.
		secrets.VerifyDummy(password)
		return nil, s.loginFailed(ctx, email, "no local credentials")
	}
	if err := secrets.Verify(password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, s.loginFailed(ctx, email, "wrong password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}

	user.RecordLogin(requestcontext.Now(ctx))
	if err := s.users.Update(ctx, user); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login")
	}

	s.auditor.Emit(ctx, audit.Entry{
		ActorID:  user.ID,
		Action:   audit.ActionLogin,
		Resource: "user",
	})
	return user, nil
}

func (s *Service) loginFailed(ctx context.Context, email, reason string) error {
	s.metrics.IncrementLoginFailures()
	s.auditor.Emit(ctx, audit.Entry{
		Action:       audit.ActionLogin,
		Resource:     "user",
		ResourceID:   models.NormalizeEmail(email),
		Status:       audit.OutcomeFailure,
		ErrorMessage: reason,
	})
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

// Get resolves a user by ID. A structurally valid token whose user is gone
// yields not-found, per the authentication gate contract.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}
	return user, nil
}

// GetByShopDomain resolves the merchant identity linked to a shop.
func (s *Service) GetByShopDomain(ctx context.Context, shopDomain string) (*models.User, error) {
	user, err := s.users.FindByShopDomain(ctx, shopDomain)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "shop not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up shop")
	}
	return user, nil
}

// Logout revokes the presented token's jti for the remainder of its lifetime
// and records the auth event.
func (s *Service) Logout(ctx context.Context, userID id.UserID, jti string, remaining time.Duration) error {
	ctx, span := s.tracer.Start(ctx, "identity.Logout")
	defer span.End()

	if s.revocations != nil && jti != "" && remaining > 0 {
		if err := s.revocations.Revoke(ctx, jti, remaining); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
		}
	}
	s.auditor.Emit(ctx, audit.Entry{
		ActorID:  userID,
		Action:   audit.ActionLogout,
		Resource: "user",
	})
	return nil
}

// Deactivate soft-disables an account. Identities are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Deactivate(requestcontext.Now(ctx))
	if err := s.users.Update(ctx, user); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate user")
	}
	return user, nil
}

// ExternalUpsert carries attributes from the commerce platform. Exactly one
// of ShopDomain or Email keys the upsert.
type ExternalUpsert struct {
	ShopDomain  string
	Email       string
	ExternalID  string
	AccessToken string
	FirstName   string
	LastName    string
}

// UpsertByExternalKey creates or refreshes an identity from commerce data.
// Idempotent: repeated calls with identical attributes only refresh the
// updated timestamp.
func (s *Service) UpsertByExternalKey(ctx context.Context, params ExternalUpsert) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "identity.UpsertByExternalKey")
	defer span.End()

	now := requestcontext.Now(ctx)

	existing, err := s.findForUpsert(ctx, params)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	if existing != nil {
		applyExternalAttrs(existing, params, now)
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
		}
		return existing, nil
	}

	user, err := models.NewUser(id.NewUserID(), params.Email, "", params.ExternalID, now)
	if err != nil {
		if params.ShopDomain == "" {
			return nil, err
		}
		// Shop-keyed identities may lack email and customer ID entirely.
		user = &models.User{
			ID:          id.NewUserID(),
			Active:      true,
			Preferences: models.DefaultPreferences(),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	applyExternalAttrs(user, params, now)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeDuplicate, "external identity already linked")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	s.metrics.IncrementUsersRegistered()
	return user, nil
}

func (s *Service) findForUpsert(ctx context.Context, params ExternalUpsert) (*models.User, error) {
	if params.ShopDomain != "" {
		return s.users.FindByShopDomain(ctx, params.ShopDomain)
	}
	if params.Email != "" {
		return s.users.FindByEmail(ctx, models.NormalizeEmail(params.Email))
	}
	if params.ExternalID != "" {
		return s.users.FindByExternalID(ctx, params.ExternalID)
	}
	return nil, sentinel.ErrNotFound
}

func applyExternalAttrs(user *models.User, params ExternalUpsert, now time.Time) {
	if params.Email != "" {
		user.Email = models.NormalizeEmail(params.Email)
	}
	if params.ShopDomain != "" {
		user.ShopDomain = params.ShopDomain
	}
	if params.ExternalID != "" {
		user.ExternalID = params.ExternalID
	}
	if params.AccessToken != "" {
		user.ExternalAccessToken = params.AccessToken
	}
	if params.FirstName != "" {
		user.FirstName = params.FirstName
	}
	if params.LastName != "" {
		user.LastName = params.LastName
	}
	user.UpdatedAt = now
}
