// Package service implements the commerce bridge: OAuth onboarding of shops,
// customer webhooks, product proxying and document hand-off.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"signet/internal/audit"
	"signet/internal/commerce/client"
	docmodels "signet/internal/document/models"
	identitymodels "signet/internal/identity/models"
	identitysvc "signet/internal/identity/service"
	id "signet/pkg/domain"
	dErrors "signet/pkg/domain-errors"
	"signet/pkg/platform/sentinel"
	"signet/pkg/requestcontext"
)

// ShopAPI is the outbound Shopify surface the bridge depends on.
type ShopAPI interface {
	ExchangeCode(ctx context.Context, shop, code string) (string, error)
	FetchShop(ctx context.Context, shop, accessToken string) (client.Shop, error)
	FetchProducts(ctx context.Context, shop, accessToken string) (json.RawMessage, error)
}

// Identity is the slice of the identity service the bridge uses.
type Identity interface {
	UpsertByExternalKey(ctx context.Context, params identitysvc.ExternalUpsert) (*identitymodels.User, error)
	GetByShopDomain(ctx context.Context, shopDomain string) (*identitymodels.User, error)
}

// DocumentFinder resolves documents for the send-to-customer hand-off.
type DocumentFinder interface {
	FindByID(ctx context.Context, docID id.DocumentID) (*docmodels.Document, error)
}

// Service bridges the commerce platform to local identities and documents.
type Service struct {
	shopify     ShopAPI
	identity    Identity
	documents   DocumentFinder
	auditor     *audit.Publisher
	logger      *slog.Logger
	frontendURL string
	tracer      trace.Tracer
}

func NewService(
	shopify ShopAPI,
	identity Identity,
	documents DocumentFinder,
	auditor *audit.Publisher,
	frontendURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		shopify:     shopify,
		identity:    identity,
		documents:   documents,
		auditor:     auditor,
		logger:      logger,
		frontendURL: frontendURL,
		tracer:      otel.Tracer("signet/commerce"),
	}
}

// OAuthCallback completes the OAuth handshake for a shop and returns the
// frontend URL to redirect to. Every failure mode redirects; the browser
// sitting on the other end never sees a raw error.
func (s *Service) OAuthCallback(ctx context.Context, code, shop string) string {
	ctx, span := s.tracer.Start(ctx, "commerce.OAuthCallback")
	defer span.End()

	if code == "" || shop == "" {
		return s.failureRedirect()
	}

	accessToken, err := s.shopify.ExchangeCode(ctx, shop, code)
	if err != nil {
		s.logFailure(ctx, "oauth code exchange failed", shop, err)
		return s.failureRedirect()
	}

	shopInfo, err := s.shopify.FetchShop(ctx, shop, accessToken)
	if err != nil {
		s.logFailure(ctx, "shop profile fetch failed", shop, err)
		return s.failureRedirect()
	}

	_, err = s.identity.UpsertByExternalKey(ctx, identitysvc.ExternalUpsert{
		ShopDomain:  shop,
		Email:       shopInfo.Email,
		AccessToken: accessToken,
	})
	if err != nil {
		s.logFailure(ctx, "shop identity upsert failed", shop, err)
		return s.failureRedirect()
	}

	s.logger.InfoContext(ctx, "shop connected",
		"shop", shop,
		"request_id", requestcontext.RequestID(ctx),
	)
	return fmt.Sprintf("%s/dashboard?shop=%s&success=true", s.frontendURL, url.QueryEscape(shop))
}

func (s *Service) failureRedirect() string {
	return s.frontendURL + "/auth?error=oauth_failed"
}

type customerPayload struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ProcessCustomerWebhook upserts a customer identity from a create/update
// webhook. Malformed payloads return a bad-request error; the handler still
// acknowledges those so the platform stops redelivering them.
func (s *Service) ProcessCustomerWebhook(ctx context.Context, body []byte) error {
	ctx, span := s.tracer.Start(ctx, "commerce.ProcessCustomerWebhook")
	defer span.End()

	var payload customerPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed webhook payload")
	}
	if payload.Email == "" {
		return dErrors.New(dErrors.CodeBadRequest, "webhook payload has no email")
	}

	var externalID string
	if payload.ID != 0 {
		externalID = fmt.Sprintf("%d", payload.ID)
	}
	_, err := s.identity.UpsertByExternalKey(ctx, identitysvc.ExternalUpsert{
		Email:      payload.Email,
		ExternalID: externalID,
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to upsert customer")
	}
	return nil
}

// ListProducts proxies the product listing of a connected shop.
func (s *Service) ListProducts(ctx context.Context, shop string) (json.RawMessage, error) {
	ctx, span := s.tracer.Start(ctx, "commerce.ListProducts")
	defer span.End()

	if shop == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "shop parameter is required")
	}
	merchant, err := s.identity.GetByShopDomain(ctx, shop)
	if err != nil {
		return nil, err
	}

	products, err := s.shopify.FetchProducts(ctx, shop, merchant.ExternalAccessToken)
	if err != nil {
		s.logFailure(ctx, "product listing failed", shop, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to fetch products")
	}
	return products, nil
}

// SendDocument hands a document off to a shop customer and records the
// share in the audit trail.
func (s *Service) SendDocument(ctx context.Context, shop, customerID string, docID id.DocumentID) error {
	ctx, span := s.tracer.Start(ctx, "commerce.SendDocument")
	defer span.End()

	if shop == "" || customerID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "shop and customer_id are required")
	}
	if _, err := s.identity.GetByShopDomain(ctx, shop); err != nil {
		return err
	}
	doc, err := s.documents.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up document")
	}

	s.logger.InfoContext(ctx, "document sent to customer",
		"shop", shop,
		"customer_id", customerID,
		"document_id", doc.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.auditor.Emit(ctx, audit.Entry{
		ActorID:    requestcontext.UserID(ctx),
		DocumentID: doc.ID,
		Action:     audit.ActionShare,
		Resource:   "document",
		ResourceID: doc.ID.String(),
		Changes: map[string]any{
			"shop":        shop,
			"customer_id": customerID,
		},
	})
	return nil
}

func (s *Service) logFailure(ctx context.Context, msg, shop string, err error) {
	s.logger.WarnContext(ctx, msg,
		"shop", shop,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}
