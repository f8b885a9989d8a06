// Package api exercises the assembled router end to end with in-memory
// backing stores: the same wiring main performs, minus the network.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"signet/internal/audit"
	auditmemory "signet/internal/audit/store/memory"
	commerceclient "signet/internal/commerce/client"
	commercehandler "signet/internal/commerce/handler"
	commerceservice "signet/internal/commerce/service"
	"signet/internal/content"
	dochandler "signet/internal/document/handler"
	docservice "signet/internal/document/service"
	docstore "signet/internal/document/store"
	httpapi "signet/internal/http"
	identityhandler "signet/internal/identity/handler"
	identityservice "signet/internal/identity/service"
	identitystore "signet/internal/identity/store"
	"signet/internal/ratelimit"
	"signet/internal/token"
	"signet/internal/token/revocation"
	id "signet/pkg/domain"
	"signet/pkg/testutil"
)

type stubShopAPI struct{}

func (stubShopAPI) ExchangeCode(ctx context.Context, shop, code string) (string, error) {
	return "shpat_stub", nil
}

func (stubShopAPI) FetchShop(ctx context.Context, shop, accessToken string) (commerceclient.Shop, error) {
	return commerceclient.Shop{Name: "Stub Shop", Email: "owner@stub.test"}, nil
}

func (stubShopAPI) FetchProducts(ctx context.Context, shop, accessToken string) (json.RawMessage, error) {
	return json.RawMessage(`{"products":[]}`), nil
}

type APIFlowSuite struct {
	suite.Suite
	router http.Handler
	trail  *auditmemory.Store
}

func TestAPIFlowSuite(t *testing.T) {
	suite.Run(t, new(APIFlowSuite))
}

func (s *APIFlowSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)

	s.trail = auditmemory.New()
	auditor := audit.NewPublisher(s.trail, logger)

	userStore := identitystore.NewInMemory()
	revocations := revocation.NewInMemory()
	tokens := token.NewService("integration-signing-key", "signet")
	validator := token.NewMiddlewareAdapter(tokens)

	identity := identityservice.NewService(userStore, auditor,
		identityservice.WithRevocations(revocations))

	documents := docstore.NewInMemory()
	documentsSvc := docservice.NewService(
		documents,
		content.NewFSStore(s.T().TempDir()),
		content.Allowlist{"application/pdf"},
		auditor,
	)

	commerce := commerceservice.NewService(
		stubShopAPI{}, identity, documents, auditor, "http://frontend.test", logger)

	throttle := ratelimit.NewMiddleware(
		ratelimit.NewInMemory(), 50, time.Minute, logger)

	s.router = httpapi.NewRouter(httpapi.Deps{
		Logger:       logger,
		Auth:         identityhandler.New(identity, tokens, time.Hour, validator, revocations, logger),
		Documents:    dochandler.New(documentsSvc, validator, revocations, logger),
		Commerce:     commercehandler.New(commerce, "", logger),
		AuthThrottle: throttle,
	})
}

func (s *APIFlowSuite) register(email, password string) (string, id.UserID) {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/register", map[string]any{
		"email":    email,
		"password": password,
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	body := testutil.UnmarshalResponse[struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}](s.T(), rr)
	s.Require().NotEmpty(body.Token)
	userID, err := id.ParseUserID(body.User.ID)
	s.Require().NoError(err)
	return body.Token, userID
}

func (s *APIFlowSuite) TestDocumentLifecycle() {
	tokenString, userID := s.register("merchant@example.com", "sup3r-secret")
	authed := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer "+tokenString)
		return req
	}

	// Upload a document that requires a signature.
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/documents/", map[string]any{
		"file_name":         "order-42.pdf",
		"content_base64":    base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 order")),
		"mime_type":         "application/pdf",
		"document_type":     "invoice",
		"require_signature": true,
	})
	rr := testutil.DoRequest(s.router, authed(req))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	created := testutil.UnmarshalResponse[struct {
		Document struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"document"`
	}](s.T(), rr)
	docID := created.Document.ID
	s.Equal("pending_signature", created.Document.Status)

	// Public verification fails while unsigned.
	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/api/documents/"+docID+"/verify"))
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)

	// Sign it.
	req = testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/documents/"+docID+"/sign", map[string]any{
		"transaction_id": "txn-e2e",
	})
	rr = testutil.DoRequest(s.router, authed(req))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	// Now anyone can verify it, without credentials.
	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/api/documents/"+docID+"/verify"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "verified", true)

	// The owner downloads the original bytes back.
	rr = testutil.DoRequest(s.router, authed(testutil.NewRequest(s.T(), http.MethodGet, "/api/documents/"+docID+"/download")))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal("%PDF-1.4 order", rr.Body.String())

	// Logout, after which the token is dead.
	rr = testutil.DoRequest(s.router, authed(testutil.NewRequest(s.T(), http.MethodPost, "/api/auth/logout")))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	rr = testutil.DoRequest(s.router, authed(testutil.NewRequest(s.T(), http.MethodGet, "/api/documents/my-documents")))
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)

	// The trail recorded the whole journey in order. The public verify is
	// anonymous and lives outside this actor's trail.
	entries, err := s.trail.ListByActor(context.Background(), userID)
	s.Require().NoError(err)
	var actions []audit.Action
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	s.Equal([]audit.Action{
		audit.ActionUpload,
		audit.ActionSign,
		audit.ActionDownload,
		audit.ActionLogout,
	}, actions)
}

func (s *APIFlowSuite) TestShopifyBridge() {
	// OAuth callback upserts a shop-keyed identity and bounces to the frontend.
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(),
		http.MethodGet, "/api/shopify/auth/callback?shop=stub.myshopify.com&code=abc"))
	testutil.AssertStatus(s.T(), rr, http.StatusFound)
	s.Contains(rr.Header().Get("Location"), "success=true")

	// The shop's products are reachable through the bridge afterwards.
	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(),
		http.MethodGet, "/api/shopify/store/products?shop=stub.myshopify.com"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *APIFlowSuite) TestHealth() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/health"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "status", "ok")
}

func (s *APIFlowSuite) TestAuthThrottle() {
	for i := 0; i < 50; i++ {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login", map[string]any{
			"email":    "nobody@example.com",
			"password": "wrong-password",
		})
		testutil.DoRequest(s.router, req)
	}

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "nobody@example.com",
		"password": "wrong-password",
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusTooManyRequests)
}
