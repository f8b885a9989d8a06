// Package models defines the document aggregate and its signing state
// machine. All transitions run through methods on Document so the status
// history stays consistent with the status field.
package models

import (
	"fmt"
	"strings"
	"time"

	id "signet/pkg/domain"
	dErrors "signet/pkg/domain-errors"
)

// Type tags what kind of business document this is.
type Type string

const (
	TypeInvoice   Type = "invoice"
	TypeQuote     Type = "quote"
	TypeContract  Type = "contract"
	TypeAgreement Type = "agreement"
	TypeReceipt   Type = "receipt"
	TypeOther     Type = "other"
)

// ParseType validates a document type string. Empty input defaults to other.
func ParseType(s string) (Type, error) {
	if s == "" {
		return TypeOther, nil
	}
	switch t := Type(strings.ToLower(s)); t {
	case TypeInvoice, TypeQuote, TypeContract, TypeAgreement, TypeReceipt, TypeOther:
		return t, nil
	default:
		return "", dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown document type %q", s))
	}
}

// Status is the document lifecycle state.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusPendingSignature Status = "pending_signature"
	StatusSigned           Status = "signed"
	StatusArchived         Status = "archived"
	StatusCancelled        Status = "cancelled"
)

// SignatureStatus tracks the signature sub-record independently of the
// document status; rejected and expired exist only here.
type SignatureStatus string

const (
	SignaturePending  SignatureStatus = "pending"
	SignatureSigned   SignatureStatus = "signed"
	SignatureRejected SignatureStatus = "rejected"
	SignatureExpired  SignatureStatus = "expired"
)

// Signature holds the outcome of an external signing ceremony. Payload is
// opaque; this service stores and returns it without interpretation.
type Signature struct {
	Status            SignatureStatus `json:"status"`
	SignedAt          time.Time       `json:"signed_at,omitempty"`
	Payload           map[string]any  `json:"payload,omitempty"`
	TransactionID     string          `json:"transaction_id,omitempty"`
	SignedBy          string          `json:"signed_by,omitempty"`
	CertificateSerial string          `json:"certificate_serial,omitempty"`
}

// HistoryEntry records one status change. The history is append-only.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
	ChangedBy string    `json:"changed_by,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// Document is the aggregate root. ID and OwnerID are immutable after
// creation; Revision guards concurrent updates.
type Document struct {
	ID               id.DocumentID   `json:"id"`
	OwnerID          id.UserID       `json:"owner_id"`
	OrderRef         string          `json:"order_ref,omitempty"`
	FileName         string          `json:"file_name"`
	OriginalFileName string          `json:"original_file_name"`
	Type             Type            `json:"document_type"`
	StorageKey       string          `json:"-"`
	FileSize         int64           `json:"file_size"`
	MimeType         string          `json:"mime_type"`
	FileHash         string          `json:"file_hash"`
	Signature        Signature       `json:"signature"`
	Status           Status          `json:"status"`
	StatusHistory    []HistoryEntry  `json:"status_history"`
	ExpiresAt        time.Time       `json:"expires_at,omitempty"`
	// IsExpired is derived from ExpiresAt on every read; it is never the
	// source of truth.
	IsExpired   bool           `json:"is_expired"`
	Tags        []string       `json:"tags,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Revision    int64          `json:"revision"`
	UploadedAt  time.Time      `json:"uploaded_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewDocument builds a draft document around already-stored content. When
// requireSignature is set the document goes straight to pending_signature.
func NewDocument(docID id.DocumentID, ownerID id.UserID, requireSignature bool, now time.Time) *Document {
	status := StatusDraft
	if requireSignature {
		status = StatusPendingSignature
	}
	doc := &Document{
		ID:      docID,
		OwnerID: ownerID,
		Type:    TypeOther,
		Signature: Signature{
			Status: SignaturePending,
		},
		Status:     status,
		Revision:   1,
		UploadedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	doc.appendHistory(status, ownerID.String(), "created", now)
	return doc
}

// RefreshExpiry recomputes the derived expiry flag. Signed documents never
// expire retroactively.
func (d *Document) RefreshExpiry(now time.Time) {
	d.IsExpired = !d.ExpiresAt.IsZero() &&
		now.After(d.ExpiresAt) &&
		d.Status != StatusSigned
}

// CanSign reports whether a signing attempt is legal in the current state.
func (d *Document) CanSign(now time.Time) error {
	switch d.Status {
	case StatusSigned:
		return dErrors.New(dErrors.CodeInvalidState, "document is already signed")
	case StatusCancelled, StatusArchived:
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("document is %s", d.Status))
	case StatusDraft:
		return dErrors.New(dErrors.CodeInvalidState, "document has not been submitted for signature")
	}
	if d.Signature.Status == SignatureRejected {
		return dErrors.New(dErrors.CodeInvalidState, "signature was rejected; resubmit first")
	}
	d.RefreshExpiry(now)
	if d.IsExpired || d.Signature.Status == SignatureExpired {
		return dErrors.New(dErrors.CodeInvalidState, "document has expired")
	}
	return nil
}

// ApplySignature records a successful signing ceremony and moves the
// document to signed. Callers must have checked CanSign.
func (d *Document) ApplySignature(payload map[string]any, transactionID, signedBy, certSerial string, now time.Time) {
	d.Signature = Signature{
		Status:            SignatureSigned,
		SignedAt:          now,
		Payload:           payload,
		TransactionID:     transactionID,
		SignedBy:          signedBy,
		CertificateSerial: certSerial,
	}
	d.setStatus(StatusSigned, signedBy, "signature applied", now)
	d.IsExpired = false
}

// Resubmit returns a rejected or expired document to pending_signature. A
// fresh expiry may be supplied; zero keeps the document open-ended.
func (d *Document) Resubmit(by string, newExpiresAt time.Time, now time.Time) error {
	d.RefreshExpiry(now)
	resubmittable := d.Signature.Status == SignatureRejected ||
		d.Signature.Status == SignatureExpired ||
		(d.Status == StatusPendingSignature && d.IsExpired)
	if !resubmittable {
		return dErrors.New(dErrors.CodeInvalidState, "only rejected or expired documents can be resubmitted")
	}
	d.Signature = Signature{Status: SignaturePending}
	d.ExpiresAt = newExpiresAt
	d.IsExpired = false
	d.setStatus(StatusPendingSignature, by, "resubmitted for signature", now)
	return nil
}

// Archive moves a settled document out of the active set. Pending work
// cannot be archived away.
func (d *Document) Archive(by string, now time.Time) error {
	switch d.Status {
	case StatusArchived:
		return dErrors.New(dErrors.CodeInvalidState, "document is already archived")
	case StatusDraft:
		return dErrors.New(dErrors.CodeInvalidState, "draft documents cannot be archived")
	case StatusPendingSignature:
		d.RefreshExpiry(now)
		rejected := d.Signature.Status == SignatureRejected
		expired := d.IsExpired || d.Signature.Status == SignatureExpired
		if !rejected && !expired {
			return dErrors.New(dErrors.CodeInvalidState, "document is awaiting signature")
		}
	}
	d.setStatus(StatusArchived, by, "archived", now)
	return nil
}

// Cancel abandons a draft or pending document. Signed documents are
// immutable records and cannot be cancelled.
func (d *Document) Cancel(by, notes string, now time.Time) error {
	switch d.Status {
	case StatusDraft, StatusPendingSignature:
		d.setStatus(StatusCancelled, by, notes, now)
		return nil
	default:
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("cannot cancel a %s document", d.Status))
	}
}

// IsSigned reports whether the document carries a completed signature.
func (d *Document) IsSigned() bool {
	return d.Status == StatusSigned && d.Signature.Status == SignatureSigned
}

func (d *Document) setStatus(status Status, by, notes string, now time.Time) {
	d.Status = status
	d.appendHistory(status, by, notes, now)
	d.UpdatedAt = now
}

func (d *Document) appendHistory(status Status, by, notes string, now time.Time) {
	d.StatusHistory = append(d.StatusHistory, HistoryEntry{
		Status:    status,
		ChangedAt: now,
		ChangedBy: by,
		Notes:     notes,
	})
}
