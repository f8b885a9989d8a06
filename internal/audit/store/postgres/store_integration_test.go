//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"signet/internal/audit"
	"signet/internal/audit/store/postgres"
	id "signet/pkg/domain"
	txcontext "signet/pkg/platform/tx"
	"signet/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
}

func (s *PostgresAuditSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "audit_entries")
	s.Require().NoError(err)
}

func newAuditEntry(actorID id.UserID, docID id.DocumentID, action audit.Action, at time.Time) audit.Entry {
	return audit.Entry{
		ID:         uuid.New(),
		ActorID:    actorID,
		DocumentID: docID,
		Action:     action,
		Resource:   "document",
		ResourceID: docID.String(),
		Changes:    map[string]any{"file_name": "contract.pdf"},
		IPAddress:  "203.0.113.7",
		UserAgent:  "curl/8.0",
		Status:     audit.OutcomeSuccess,
		Timestamp:  at,
	}
}

func (s *PostgresAuditSuite) TestAppendAndList() {
	ctx := context.Background()
	actor := id.NewUserID()
	doc := id.NewDocumentID()
	base := time.Now().UTC().Truncate(time.Microsecond)

	first := newAuditEntry(actor, doc, audit.ActionUpload, base)
	second := newAuditEntry(actor, doc, audit.ActionDownload, base.Add(time.Second))
	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))

	s.Run("by actor in chronological order", func() {
		entries, err := s.store.ListByActor(ctx, actor)
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(audit.ActionUpload, entries[0].Action)
		s.Equal(audit.ActionDownload, entries[1].Action)
		s.Equal("contract.pdf", entries[0].Changes["file_name"])
		s.Equal("203.0.113.7", entries[0].IPAddress)
	})

	s.Run("by document", func() {
		entries, err := s.store.ListByDocument(ctx, doc)
		s.Require().NoError(err)
		s.Len(entries, 2)
	})

	s.Run("unknown actor is empty", func() {
		entries, err := s.store.ListByActor(ctx, id.NewUserID())
		s.Require().NoError(err)
		s.Empty(entries)
	})
}

func (s *PostgresAuditSuite) TestAnonymousActor() {
	ctx := context.Background()
	doc := id.NewDocumentID()

	entry := newAuditEntry(id.UserID{}, doc, audit.ActionVerify, time.Now().UTC())
	s.Require().NoError(s.store.Append(ctx, entry))

	entries, err := s.store.ListByDocument(ctx, doc)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.True(entries[0].ActorID.IsNil())
}

// TestTransactionRollback verifies the tx-aware path: an append joined to a
// rolled-back transaction leaves no trace.
func (s *PostgresAuditSuite) TestTransactionRollback() {
	ctx := context.Background()
	actor := id.NewUserID()
	runner := txcontext.NewSQLRunner(s.postgres.DB)

	sentinelErr := errors.New("abort")
	err := runner.RunInTx(ctx, func(txCtx context.Context) error {
		entry := newAuditEntry(actor, id.NewDocumentID(), audit.ActionDelete, time.Now().UTC())
		if err := s.store.Append(txCtx, entry); err != nil {
			return err
		}
		return sentinelErr
	})
	s.ErrorIs(err, sentinelErr)

	entries, err := s.store.ListByActor(ctx, actor)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *PostgresAuditSuite) TestTransactionCommit() {
	ctx := context.Background()
	actor := id.NewUserID()
	runner := txcontext.NewSQLRunner(s.postgres.DB)

	err := runner.RunInTx(ctx, func(txCtx context.Context) error {
		return s.store.Append(txCtx, newAuditEntry(actor, id.NewDocumentID(), audit.ActionDelete, time.Now().UTC()))
	})
	s.Require().NoError(err)

	entries, err := s.store.ListByActor(ctx, actor)
	s.Require().NoError(err)
	s.Len(entries, 1)
}
