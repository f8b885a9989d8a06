// Package handler exposes the document endpoints.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"signet/internal/document/models"
	"signet/internal/document/service"
	"signet/internal/http/shared"
	"signet/internal/platform/middleware"
	id "signet/pkg/domain"
	dErrors "signet/pkg/domain-errors"
	"signet/pkg/requestcontext"
)

// Service defines the document operations the handler depends on.
type Service interface {
	Create(ctx context.Context, ownerID id.UserID, params service.CreateParams) (*models.Document, error)
	Sign(ctx context.Context, docID id.DocumentID, callerID id.UserID, params service.SignParams) (*models.Document, error)
	Verify(ctx context.Context, docID id.DocumentID) (bool, *models.Document, error)
	Get(ctx context.Context, docID id.DocumentID, callerID id.UserID) (*models.Document, error)
	List(ctx context.Context, ownerID id.UserID) ([]*models.Document, error)
	Download(ctx context.Context, docID id.DocumentID, callerID id.UserID) (*models.Document, []byte, error)
	Delete(ctx context.Context, docID id.DocumentID, callerID id.UserID) error
	Resubmit(ctx context.Context, docID id.DocumentID, callerID id.UserID, newExpiresAt time.Time) (*models.Document, error)
	Archive(ctx context.Context, docID id.DocumentID, callerID id.UserID) (*models.Document, error)
}

// Handler handles the /api/documents endpoints.
type Handler struct {
	logger      *slog.Logger
	documents   Service
	validator   middleware.TokenValidator
	revocations middleware.RevocationChecker
}

func New(
	documents Service,
	validator middleware.TokenValidator,
	revocations middleware.RevocationChecker,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		logger:      logger,
		documents:   documents,
		validator:   validator,
		revocations: revocations,
	}
}

// Register mounts the document routes on the given router. Signature
// verification is public; everything else requires authentication.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(h.validator, h.revocations))
		r.Post("/{id}/verify", h.handleVerify)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.revocations, h.logger))
		r.Post("/", h.handleCreate)
		r.Get("/my-documents", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/download", h.handleDownload)
		r.Post("/{id}/sign", h.handleSign)
		r.Post("/{id}/resubmit", h.handleResubmit)
		r.Post("/{id}/archive", h.handleArchive)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		shared.WriteError(w, err)
		return
	}
	data, err := req.decodeContent()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	params := service.CreateParams{
		Content:          data,
		FileName:         req.FileName,
		MimeType:         req.MimeType,
		DocumentType:     req.DocumentType,
		RequireSignature: req.RequireSignature,
		OrderRef:         req.OrderRef,
		Description:      req.Description,
		Tags:             req.Tags,
		Metadata:         req.Metadata,
	}
	if req.ExpiresAt != nil {
		params.ExpiresAt = *req.ExpiresAt
	}

	doc, err := h.documents.Create(ctx, requestcontext.UserID(ctx), params)
	if err != nil {
		h.logFailure(ctx, "document creation failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, documentEnvelope(doc))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.documents.List(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.logFailure(ctx, "document listing failed", err)
		shared.WriteError(w, err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := documentIDFromRequest(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	doc, err := h.documents.Get(ctx, docID, requestcontext.UserID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, documentEnvelope(doc))
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := documentIDFromRequest(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	doc, data, err := h.documents.Download(ctx, docID, requestcontext.UserID(ctx))
	if err != nil {
		h.logFailure(ctx, "document download failed", err)
		shared.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", doc.OriginalFileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleSign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := documentIDFromRequest(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req signRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	doc, err := h.documents.Sign(ctx, docID, requestcontext.UserID(ctx), service.SignParams{
		Payload:           req.Payload,
		TransactionID:     req.TransactionID,
		SignedBy:          req.SignedBy,
		CertificateSerial: req.CertificateSerial,
	})
	if err != nil {
		h.logFailure(ctx, "document signing failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, documentEnvelope(doc))
}

// handleVerify is the public signature check: anyone holding a document ID
// can confirm whether it is signed.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := documentIDFromRequest(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	verified, doc, err := h.documents.Verify(ctx, docID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if !verified {
		shared.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":    "document is not signed",
			"verified": false,
		})
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"verified": true,
		"document": doc,
	})
}

func (h *Handler) handleResubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := documentIDFromRequest(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req resubmitRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}
	var expiresAt time.Time
	if req.ExpiresAt != nil {
		expiresAt = *req.ExpiresAt
	}

	doc, err := h.documents.Resubmit(ctx, docID, requestcontext.UserID(ctx), expiresAt)
	if err != nil {
		h.logFailure(ctx, "document resubmission failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, documentEnvelope(doc))
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := documentIDFromRequest(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	doc, err := h.documents.Archive(ctx, docID, requestcontext.UserID(ctx))
	if err != nil {
		h.logFailure(ctx, "document archival failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, documentEnvelope(doc))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docID, err := documentIDFromRequest(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.documents.Delete(ctx, docID, requestcontext.UserID(ctx)); err != nil {
		h.logFailure(ctx, "document deletion failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "document deleted",
	})
}

// documentIDFromRequest parses the id path parameter. An unparseable ID maps
// to not-found: the URL names no resource we have.
func documentIDFromRequest(r *http.Request) (id.DocumentID, error) {
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		return id.DocumentID{}, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	return docID, nil
}

func documentEnvelope(doc *models.Document) map[string]*models.Document {
	return map[string]*models.Document{"document": doc}
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
}
