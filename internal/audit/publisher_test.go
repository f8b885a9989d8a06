package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	id "signet/pkg/domain"
	"signet/pkg/requestcontext"
)

type recordingStore struct {
	entries []Entry
	err     error
}

func (s *recordingStore) Append(_ context.Context, entry Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *recordingStore) ListByActor(context.Context, id.UserID) ([]Entry, error) {
	return nil, nil
}

func (s *recordingStore) ListByDocument(context.Context, id.DocumentID) ([]Entry, error) {
	return nil, nil
}

func testContext() (context.Context, time.Time, id.UserID) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	actor := id.NewUserID()
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithUserID(ctx, actor)
	ctx = requestcontext.WithClientIP(ctx, "203.0.113.9")
	ctx = requestcontext.WithUserAgent(ctx, "chrome/120.0 (linux)")
	return ctx, now, actor
}

func TestEmitEnrichesFromContext(t *testing.T) {
	store := &recordingStore{}
	p := NewPublisher(store, slog.New(slog.DiscardHandler))
	ctx, now, actor := testContext()

	p.Emit(ctx, Entry{
		ActorID:  actor,
		Action:   ActionUpload,
		Resource: "document",
	})

	require.Len(t, store.entries, 1)
	got := store.entries[0]
	require.NotEqual(t, "", got.ID.String())
	require.Equal(t, now, got.Timestamp)
	require.Equal(t, "203.0.113.9", got.IPAddress)
	require.Equal(t, "chrome/120.0 (linux)", got.UserAgent)
	require.Equal(t, OutcomeSuccess, got.Status)
}

func TestEmitPreservesExplicitOutcome(t *testing.T) {
	store := &recordingStore{}
	p := NewPublisher(store, slog.New(slog.DiscardHandler))
	ctx, _, _ := testContext()

	p.Emit(ctx, Entry{
		Action:       ActionLogin,
		Status:       OutcomeFailure,
		ErrorMessage: "wrong password",
	})

	require.Len(t, store.entries, 1)
	require.Equal(t, OutcomeFailure, store.entries[0].Status)
	require.Equal(t, "wrong password", store.entries[0].ErrorMessage)
}

func TestEmitSwallowsStoreFailure(t *testing.T) {
	store := &recordingStore{err: errors.New("disk full")}
	p := NewPublisher(store, slog.New(slog.DiscardHandler))
	ctx, _, _ := testContext()

	// Must not panic or surface the error.
	p.Emit(ctx, Entry{Action: ActionUpload})
}

func TestEmitTxReturnsStoreFailure(t *testing.T) {
	store := &recordingStore{err: errors.New("disk full")}
	p := NewPublisher(store, slog.New(slog.DiscardHandler))
	ctx, _, _ := testContext()

	err := p.EmitTx(ctx, Entry{Action: ActionDelete})
	require.Error(t, err)
}

func TestEmitForwardsToSink(t *testing.T) {
	store := &recordingStore{}
	sink := make(chan Entry, 1)
	p := NewPublisher(store, slog.New(slog.DiscardHandler), WithSink(sink))
	ctx, _, _ := testContext()

	p.Emit(ctx, Entry{Action: ActionSign})

	select {
	case entry := <-sink:
		require.Equal(t, ActionSign, entry.Action)
	default:
		t.Fatal("expected entry forwarded to sink")
	}
}

func TestEmitDoesNotBlockOnFullSink(t *testing.T) {
	store := &recordingStore{}
	sink := make(chan Entry) // unbuffered, no reader
	p := NewPublisher(store, slog.New(slog.DiscardHandler), WithSink(sink))
	ctx, _, _ := testContext()

	done := make(chan struct{})
	go func() {
		p.Emit(ctx, Entry{Action: ActionSign})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on full sink")
	}
	require.Len(t, store.entries, 1)
}
