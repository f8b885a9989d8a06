// Package worker drains the audit fan-out channel into a sink. It keeps
// background publishing off the request path and testable without wiring a
// real broker.
package worker

import (
	"context"
	"log/slog"

	"signet/internal/audit"
)

// Sink receives entries the worker drains. The Kafka publisher satisfies it.
type Sink interface {
	Publish(ctx context.Context, entry audit.Entry) error
}

type Worker struct {
	sink   Sink
	inbox  <-chan audit.Entry
	logger *slog.Logger
}

func New(sink Sink, inbox <-chan audit.Entry, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run consumes until the context is cancelled. Sink failures are logged and
// the worker keeps going; the durable copy already lives in the audit store.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			if err := w.sink.Publish(ctx, entry); err != nil {
				w.logger.ErrorContext(ctx, "audit sink publish failed",
					"action", string(entry.Action),
					"error", err,
				)
			}
		}
	}
}
