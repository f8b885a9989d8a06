// Package service implements the document lifecycle: upload, signing,
// verification, expiry, archival and deletion. Every state-changing
// operation writes an audit entry.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"signet/internal/audit"
	"signet/internal/content"
	"signet/internal/document/models"
	"signet/internal/document/store"
	"signet/internal/platform/metrics"
	id "signet/pkg/domain"
	dErrors "signet/pkg/domain-errors"
	"signet/pkg/platform/sentinel"
	txcontext "signet/pkg/platform/tx"
	"signet/pkg/requestcontext"
)

// Service owns document state transitions.
type Service struct {
	docs      store.DocumentStore
	content   content.Store
	allowlist content.Allowlist
	auditor   *audit.Publisher
	txRunner  txcontext.Runner
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type serviceConfig struct {
	txRunner txcontext.Runner
	metrics  *metrics.Metrics
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

// WithTxRunner supplies the transaction runner used by Delete. Without one,
// deletes fall back to sequential audit-then-delete.
func WithTxRunner(runner txcontext.Runner) Option {
	return func(c *serviceConfig) { c.txRunner = runner }
}

// WithMetrics wires the Prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

func NewService(
	docs store.DocumentStore,
	blobs content.Store,
	allowlist content.Allowlist,
	auditor *audit.Publisher,
	opts ...Option,
) *Service {
	cfg := &serviceConfig{txRunner: txcontext.NoopRunner{}}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		docs:      docs,
		content:   blobs,
		allowlist: allowlist,
		auditor:   auditor,
		txRunner:  cfg.txRunner,
		metrics:   cfg.metrics,
		tracer:    otel.Tracer("signet/document"),
	}
}

// CreateParams carries a document upload.
type CreateParams struct {
	Content          []byte
	FileName         string
	MimeType         string
	DocumentType     string
	RequireSignature bool
	OrderRef         string
	Description      string
	Tags             []string
	Metadata         map[string]any
	ExpiresAt        time.Time
}

// Create stores the uploaded bytes and the document record. The content hash
// is computed here, once, over the received buffer.
func (s *Service) Create(ctx context.Context, ownerID id.UserID, params CreateParams) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.Create")
	defer span.End()

	if len(params.Content) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "file content is required")
	}
	if params.FileName == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "file name is required")
	}
	if !s.allowlist.Allows(params.MimeType) {
		return nil, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("file type %q is not allowed", params.MimeType))
	}
	docType, err := models.ParseType(params.DocumentType)
	if err != nil {
		return nil, err
	}

	info, err := s.content.Put(ctx, params.Content, params.FileName, params.MimeType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store file content")
	}

	now := requestcontext.Now(ctx)
	doc := models.NewDocument(id.NewDocumentID(), ownerID, params.RequireSignature, now)
	doc.OrderRef = params.OrderRef
	doc.FileName = info.StorageKey
	doc.OriginalFileName = params.FileName
	doc.Type = docType
	doc.StorageKey = info.StorageKey
	doc.FileSize = info.Size
	doc.MimeType = info.MimeType
	doc.FileHash = info.Hash
	doc.Description = params.Description
	doc.Tags = params.Tags
	doc.Metadata = params.Metadata
	doc.ExpiresAt = params.ExpiresAt

	if err := s.docs.Create(ctx, doc); err != nil {
		// The blob is already on disk; reclaim it rather than orphaning.
		s.content.Delete(ctx, info.StorageKey)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create document")
	}

	s.metrics.IncrementDocumentsCreated()
	s.auditor.Emit(ctx, audit.Entry{
		ActorID:    ownerID,
		DocumentID: doc.ID,
		Action:     audit.ActionUpload,
		Resource:   "document",
		ResourceID: doc.ID.String(),
		Changes: map[string]any{
			"file_name":     doc.OriginalFileName,
			"file_size":     doc.FileSize,
			"document_type": string(doc.Type),
			"status":        string(doc.Status),
		},
	})
	return doc, nil
}

// SignParams carries the outcome of an external signing ceremony.
type SignParams struct {
	Payload           map[string]any
	TransactionID     string
	SignedBy          string
	CertificateSerial string
}

// Sign applies a signature to a pending document. Only the owner may sign;
// the transition is guarded by the state machine and by the revision CAS.
func (s *Service) Sign(ctx context.Context, docID id.DocumentID, callerID id.UserID, params SignParams) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.Sign")
	defer span.End()

	doc, err := s.loadOwned(ctx, docID, callerID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if err := doc.CanSign(now); err != nil {
		s.auditFailure(ctx, callerID, docID, audit.ActionSign, err)
		return nil, err
	}

	signedBy := params.SignedBy
	if signedBy == "" {
		signedBy = callerID.String()
	}
	doc.ApplySignature(params.Payload, params.TransactionID, signedBy, params.CertificateSerial, now)

	if err := s.update(ctx, doc); err != nil {
		return nil, err
	}

	s.metrics.IncrementDocumentsSigned()
	s.auditor.Emit(ctx, audit.Entry{
		ActorID:    callerID,
		DocumentID: doc.ID,
		Action:     audit.ActionSign,
		Resource:   "document",
		ResourceID: doc.ID.String(),
		Changes: map[string]any{
			"transaction_id": params.TransactionID,
			"signed_by":      signedBy,
		},
	})
	return doc, nil
}

// Verify is the public signature check. It recomputes nothing about the
// content; it reports whether the document carries a completed signature.
func (s *Service) Verify(ctx context.Context, docID id.DocumentID) (bool, *models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.Verify")
	defer span.End()

	doc, err := s.load(ctx, docID)
	if err != nil {
		return false, nil, err
	}
	doc.RefreshExpiry(requestcontext.Now(ctx))

	verified := doc.IsSigned()
	entry := audit.Entry{
		ActorID:    requestcontext.UserID(ctx),
		DocumentID: doc.ID,
		Action:     audit.ActionVerify,
		Resource:   "document",
		ResourceID: doc.ID.String(),
		Changes:    map[string]any{"verified": verified},
	}
	if !verified {
		entry.Status = audit.OutcomeFailure
		entry.ErrorMessage = "document is not signed"
	}
	s.auditor.Emit(ctx, entry)
	return verified, doc, nil
}

// Get returns an owned document with its expiry flag refreshed.
func (s *Service) Get(ctx context.Context, docID id.DocumentID, callerID id.UserID) (*models.Document, error) {
	doc, err := s.loadOwned(ctx, docID, callerID)
	if err != nil {
		return nil, err
	}
	doc.RefreshExpiry(requestcontext.Now(ctx))
	return doc, nil
}

// List returns the caller's documents newest-first.
func (s *Service) List(ctx context.Context, ownerID id.UserID) ([]*models.Document, error) {
	docs, err := s.docs.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	now := requestcontext.Now(ctx)
	for _, doc := range docs {
		doc.RefreshExpiry(now)
	}
	return docs, nil
}

// Download returns the stored bytes of an owned document.
func (s *Service) Download(ctx context.Context, docID id.DocumentID, callerID id.UserID) (*models.Document, []byte, error) {
	ctx, span := s.tracer.Start(ctx, "document.Download")
	defer span.End()

	doc, err := s.loadOwned(ctx, docID, callerID)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.content.Get(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, content.ErrBlobNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "document content not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read file content")
	}

	s.auditor.Emit(ctx, audit.Entry{
		ActorID:    callerID,
		DocumentID: doc.ID,
		Action:     audit.ActionDownload,
		Resource:   "document",
		ResourceID: doc.ID.String(),
	})
	return doc, data, nil
}

// Delete removes an owned document. The audit entry and the row delete
// commit in one transaction; losing the blob is tolerable, losing the audit
// record of the deletion is not.
func (s *Service) Delete(ctx context.Context, docID id.DocumentID, callerID id.UserID) error {
	ctx, span := s.tracer.Start(ctx, "document.Delete")
	defer span.End()

	doc, err := s.loadOwned(ctx, docID, callerID)
	if err != nil {
		return err
	}

	err = s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.auditor.EmitTx(ctx, audit.Entry{
			ActorID:    callerID,
			DocumentID: doc.ID,
			Action:     audit.ActionDelete,
			Resource:   "document",
			ResourceID: doc.ID.String(),
			Changes: map[string]any{
				"file_name": doc.OriginalFileName,
				"status":    string(doc.Status),
			},
		}); err != nil {
			return err
		}
		return s.docs.Delete(ctx, docID)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete document")
	}

	// Blob removal is best-effort after commit; an orphaned blob is the
	// acceptable failure mode.
	s.content.Delete(ctx, doc.StorageKey)
	s.metrics.IncrementDocumentsDeleted()
	return nil
}

// Resubmit returns a rejected or expired document to pending_signature.
func (s *Service) Resubmit(ctx context.Context, docID id.DocumentID, callerID id.UserID, newExpiresAt time.Time) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.Resubmit")
	defer span.End()

	doc, err := s.loadOwned(ctx, docID, callerID)
	if err != nil {
		return nil, err
	}
	if err := doc.Resubmit(callerID.String(), newExpiresAt, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Archive moves a settled document out of the active set.
func (s *Service) Archive(ctx context.Context, docID id.DocumentID, callerID id.UserID) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.Archive")
	defer span.End()

	doc, err := s.loadOwned(ctx, docID, callerID)
	if err != nil {
		return nil, err
	}
	if err := doc.Archive(callerID.String(), requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) load(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	doc, err := s.docs.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up document")
	}
	return doc, nil
}

func (s *Service) loadOwned(ctx context.Context, docID id.DocumentID, callerID id.UserID) (*models.Document, error) {
	doc, err := s.load(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != callerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "you do not have access to this document")
	}
	return doc, nil
}

func (s *Service) update(ctx context.Context, doc *models.Document) error {
	if err := s.docs.Update(ctx, doc); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return dErrors.New(dErrors.CodeConflict, "document was modified concurrently")
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update document")
		}
	}
	return nil
}

func (s *Service) auditFailure(ctx context.Context, actorID id.UserID, docID id.DocumentID, action audit.Action, cause error) {
	s.auditor.Emit(ctx, audit.Entry{
		ActorID:      actorID,
		DocumentID:   docID,
		Action:       action,
		Resource:     "document",
		ResourceID:   docID.String(),
		Status:       audit.OutcomeFailure,
		ErrorMessage: dErrors.MessageOf(cause),
	})
}
