package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"signet/internal/platform/metrics"
	"signet/pkg/requestcontext"
)

// Publisher captures structured audit entries. Persistence failures are
// reported to the process log and metrics, never back into the business
// operation being audited. The one exception is EmitTx, where the caller has
// elevated audit durability to a precondition (document deletion).
type Publisher struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	sink    chan<- Entry
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithMetrics wires the audit failure counter.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithSink fans emitted entries out to an asynchronous sink (the Kafka
// worker). The sink is best-effort; the store remains the durable path.
func WithSink(sink chan<- Entry) Option {
	return func(p *Publisher) { p.sink = sink }
}

func NewPublisher(store Store, logger *slog.Logger, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit appends an entry, enriched with request metadata from context.
// Fire-and-forget from the caller's perspective: failures are logged and
// counted, never returned.
func (p *Publisher) Emit(ctx context.Context, entry Entry) {
	entry = p.enrich(ctx, entry)
	if err := p.store.Append(ctx, entry); err != nil {
		p.metrics.IncrementAuditAppendErrors()
		p.logger.ErrorContext(ctx, "audit append failed",
			"action", string(entry.Action),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	p.forward(entry)
}

// EmitTx appends an entry and surfaces the failure to the caller. Used where
// the audit write must commit atomically with the triggering mutation: the
// delete path runs this inside the same transaction that removes the record.
func (p *Publisher) EmitTx(ctx context.Context, entry Entry) error {
	entry = p.enrich(ctx, entry)
	if err := p.store.Append(ctx, entry); err != nil {
		p.metrics.IncrementAuditAppendErrors()
		return err
	}
	p.forward(entry)
	return nil
}

func (p *Publisher) enrich(ctx context.Context, entry Entry) Entry {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if entry.Status == "" {
		entry.Status = OutcomeSuccess
	}
	if entry.IPAddress == "" {
		entry.IPAddress = requestcontext.ClientIP(ctx)
	}
	if entry.UserAgent == "" {
		entry.UserAgent = requestcontext.UserAgent(ctx)
	}
	return entry
}

// forward hands the entry to the async sink without blocking; a full sink
// drops the fan-out copy, not the stored entry.
func (p *Publisher) forward(entry Entry) {
	if p.sink == nil {
		return
	}
	select {
	case p.sink <- entry:
	default:
		p.logger.Warn("audit sink full, dropping fan-out copy",
			"action", string(entry.Action),
		)
	}
}
