package content

import (
	"errors"
	"strings"
)

// ErrBlobNotFound keeps blob-level 404s distinct from store I/O failures.
var ErrBlobNotFound = errors.New("blob not found")

// Allowlist is the configured set of acceptable MIME types. Checked by the
// document service before Put; the store itself does not enforce it, keeping
// policy external to persistence.
type Allowlist []string

// Allows reports whether the MIME type is acceptable. Matching is
// case-insensitive and ignores parameters ("application/pdf; charset=x").
func (a Allowlist) Allows(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	for _, allowed := range a {
		if strings.EqualFold(strings.TrimSpace(allowed), mimeType) {
			return true
		}
	}
	return false
}
