// Package handler exposes the /api/shopify endpoints.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"signet/internal/commerce/webhooks"
	"signet/internal/http/shared"
	id "signet/pkg/domain"
	dErrors "signet/pkg/domain-errors"
	"signet/pkg/requestcontext"
)

// Service defines the commerce operations the handler depends on.
type Service interface {
	OAuthCallback(ctx context.Context, code, shop string) string
	ProcessCustomerWebhook(ctx context.Context, body []byte) error
	ListProducts(ctx context.Context, shop string) (json.RawMessage, error)
	SendDocument(ctx context.Context, shop, customerID string, docID id.DocumentID) error
}

// Handler handles the commerce bridge endpoints.
type Handler struct {
	logger        *slog.Logger
	commerce      Service
	webhookSecret string
}

func New(commerce Service, webhookSecret string, logger *slog.Logger) *Handler {
	return &Handler{
		logger:        logger,
		commerce:      commerce,
		webhookSecret: webhookSecret,
	}
}

// Register mounts the commerce routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/auth/callback", h.handleOAuthCallback)
	r.Post("/webhooks/customer", h.handleCustomerWebhook)
	r.Get("/store/products", h.handleListProducts)
	r.Post("/send-document", h.handleSendDocument)
}

// handleOAuthCallback always redirects: the caller is a browser coming back
// from the platform's consent screen, not an API client.
func (h *Handler) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	location := h.commerce.OAuthCallback(r.Context(), q.Get("code"), q.Get("shop"))
	http.Redirect(w, r, location, http.StatusFound)
}

func (h *Handler) handleCustomerWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read webhook body"))
		return
	}

	if h.webhookSecret != "" {
		sig := r.Header.Get("X-Shopify-Hmac-Sha256")
		if !webhooks.VerifySignature(h.webhookSecret, body, sig) {
			h.logger.WarnContext(ctx, "webhook signature verification failed",
				"request_id", requestcontext.RequestID(ctx),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}
	}

	if err := h.commerce.ProcessCustomerWebhook(ctx, body); err != nil {
		// Malformed payloads are acknowledged; redelivery cannot fix them.
		if dErrors.HasCode(err, dErrors.CodeBadRequest) {
			h.logger.WarnContext(ctx, "ignoring malformed customer webhook",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
			shared.WriteJSON(w, http.StatusOK, map[string]string{"message": "webhook ignored"})
			return
		}
		h.logger.ErrorContext(ctx, "customer webhook processing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]string{"message": "webhook processed"})
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.commerce.ListProducts(ctx, r.URL.Query().Get("shop"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if products == nil {
		products = json.RawMessage("[]")
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}

type sendDocumentRequest struct {
	Shop       string `json:"shop"`
	CustomerID string `json:"customer_id"`
	DocumentID string `json:"document_id"`
}

func (h *Handler) handleSendDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sendDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	docID, err := id.ParseDocumentID(req.DocumentID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "document_id is not a valid id"))
		return
	}

	if err := h.commerce.SendDocument(ctx, req.Shop, req.CustomerID, docID); err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "document sent to customer",
	})
}
