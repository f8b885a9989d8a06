package handler

import (
	"encoding/base64"
	"time"

	"github.com/asaskevich/govalidator"

	dErrors "signet/pkg/domain-errors"
)

type createRequest struct {
	FileName         string         `json:"file_name" valid:"required"`
	ContentBase64    string         `json:"content_base64" valid:"required,base64"`
	MimeType         string         `json:"mime_type" valid:"required"`
	DocumentType     string         `json:"document_type" valid:"-"`
	RequireSignature bool           `json:"require_signature"`
	OrderRef         string         `json:"order_ref" valid:"-"`
	Description      string         `json:"description" valid:"-"`
	Tags             []string       `json:"tags" valid:"-"`
	Metadata         map[string]any `json:"metadata" valid:"-"`
	ExpiresAt        *time.Time     `json:"expires_at" valid:"-"`
}

func (r createRequest) validate() error {
	if _, err := govalidator.ValidateStruct(r); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, err.Error())
	}
	return nil
}

func (r createRequest) decodeContent() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(r.ContentBase64)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "content_base64 is not valid base64")
	}
	return data, nil
}

type signRequest struct {
	Payload           map[string]any `json:"payload"`
	TransactionID     string         `json:"transaction_id"`
	SignedBy          string         `json:"signed_by"`
	CertificateSerial string         `json:"certificate_serial"`
}

type resubmitRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
}
