package handler

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"signet/internal/audit"
	auditmemory "signet/internal/audit/store/memory"
	"signet/internal/identity/service"
	"signet/internal/identity/store"
	"signet/internal/token"
	"signet/internal/token/revocation"
	"signet/pkg/testutil"
)

type AuthHandlerSuite struct {
	suite.Suite
	router      chi.Router
	tokens      *token.Service
	revocations *revocation.InMemory
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	s.revocations = revocation.NewInMemory()
	s.tokens = token.NewService("test-signing-key", "signet")

	identity := service.NewService(
		store.NewInMemory(),
		audit.NewPublisher(auditmemory.New(), logger),
		service.WithRevocations(s.revocations),
	)

	h := New(identity, s.tokens, time.Hour, token.NewMiddlewareAdapter(s.tokens), s.revocations, logger)
	s.router = chi.NewRouter()
	s.router.Route("/api/auth", h.Register)
}

type authBody struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (s *AuthHandlerSuite) registerUser(email string) authBody {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"password": "correct horse battery",
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return *testutil.UnmarshalResponse[authBody](s.T(), rr)
}

func (s *AuthHandlerSuite) TestRegister() {
	s.Run("valid registration returns token and user", func() {
		body := s.registerUser("ada@example.com")
		s.NotEmpty(body.Token)
		s.Equal("ada@example.com", body.User.Email)

		_, err := s.tokens.Validate(body.Token)
		s.NoError(err)
	})

	s.Run("duplicate email rejected", func() {
		s.registerUser("dup@example.com")
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/register", map[string]string{
			"email":    "dup@example.com",
			"password": "another password",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorMessage(s.T(), rr, "user already exists")
	})

	s.Run("invalid email rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/register", map[string]string{
			"email":    "not-an-email",
			"password": "long enough password",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("short password rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/register", map[string]string{
			"email":    "short@example.com",
			"password": "short",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *AuthHandlerSuite) TestLogin() {
	s.Run("valid credentials return fresh token", func() {
		s.registerUser("bob@example.com")
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login", map[string]string{
			"email":    "bob@example.com",
			"password": "correct horse battery",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		body := testutil.UnmarshalResponse[authBody](s.T(), rr)
		s.NotEmpty(body.Token)
	})

	s.Run("wrong password unauthorized", func() {
		s.registerUser("carol@example.com")
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login", map[string]string{
			"email":    "carol@example.com",
			"password": "wrong password!",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
		testutil.AssertErrorMessage(s.T(), rr, "invalid credentials")
	})
}

func (s *AuthHandlerSuite) TestVerify() {
	s.Run("valid token returns user", func() {
		body := s.registerUser("dave@example.com")
		req := testutil.NewRequest(s.T(), http.MethodPost, "/api/auth/verify")
		req.Header.Set("Authorization", "Bearer "+body.Token)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})

	s.Run("missing token unauthorized", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/api/auth/verify")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("garbage token unauthorized", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/api/auth/verify")
		req.Header.Set("Authorization", "Bearer not.a.token")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})
}

func (s *AuthHandlerSuite) TestLogout() {
	body := s.registerUser("eve@example.com")

	req := testutil.NewRequest(s.T(), http.MethodPost, "/api/auth/logout")
	req.Header.Set("Authorization", "Bearer "+body.Token)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	// The revoked token no longer passes the auth gate.
	req = testutil.NewRequest(s.T(), http.MethodPost, "/api/auth/verify")
	req.Header.Set("Authorization", "Bearer "+body.Token)
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}
