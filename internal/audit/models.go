// Package audit records the append-only action trail behind every
// state-changing operation. Entries are never mutated or deleted once
// written; this is the system's compliance guarantee.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "signet/pkg/domain"
)

// Action tags what happened. The set mirrors the operations the document and
// identity services expose; it is a string so new actions do not require a
// schema change.
type Action string

const (
	ActionUpload   Action = "upload"
	ActionDownload Action = "download"
	ActionSign     Action = "sign"
	ActionVerify   Action = "verify"
	ActionShare    Action = "share"
	ActionDelete   Action = "delete"
	ActionLogin    Action = "login"
	ActionLogout   Action = "logout"
)

// Outcome records whether the audited operation succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Entry is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Entry struct {
	ID uuid.UUID
	// ActorID is zero for system or anonymous actions (e.g. public verify).
	ActorID id.UserID
	// DocumentID is zero for identity-only events (login, logout).
	DocumentID   id.DocumentID
	Action       Action
	Resource     string
	ResourceID   string
	Changes      map[string]any
	IPAddress    string
	UserAgent    string
	Status       Outcome
	ErrorMessage string
	Timestamp    time.Time
}

// Store is the append-only persistence contract. List methods exist for
// compliance reads and tests; there is deliberately no update or delete.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByActor(ctx context.Context, actorID id.UserID) ([]Entry, error)
	ListByDocument(ctx context.Context, documentID id.DocumentID) ([]Entry, error)
}
