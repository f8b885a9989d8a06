package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors with client-safe
// messages.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record or blob does not exist in the store
// - ErrAlreadyUsed: unique key (email, external ID, shop domain) is taken
// - ErrConflict: optimistic revision check failed, record changed underneath
// - ErrInvalidState: record is in the wrong lifecycle state for the operation
// - ErrExpired: token or document validity window has passed
// - ErrUnavailable: backing store temporarily unreachable
//
// For validation failures (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrExpired      = errors.New("expired")
	ErrUnavailable  = errors.New("unavailable")
)
