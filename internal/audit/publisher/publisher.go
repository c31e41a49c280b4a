// Package publisher is the write-side entry point of the audit pipeline.
package publisher

import (
	"context"
	"log/slog"
	"time"

	"watchtower/internal/audit"
	"watchtower/internal/audit/sanitize"
	"watchtower/internal/platform/metrics"
	"watchtower/internal/queue"
)

// Publisher accepts audit events from business code and hands them to the
// queue. It is strictly fire-and-forget: LogAction never blocks on
// processing and never surfaces an error, because an audit failure must not
// take down the operation that emitted it.
type Publisher struct {
	queue   queue.Queue
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Publisher.
func New(q queue.Queue, logger *slog.Logger, m *metrics.Metrics) *Publisher {
	return &Publisher{queue: q, logger: logger, metrics: m}
}

// LogAction sanitizes and enqueues one audit event. Enqueue failures are
// logged, counted, and dropped.
func (p *Publisher) LogAction(ctx context.Context, event audit.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.Details = sanitize.Sanitize(event.Details)

	if err := p.queue.Enqueue(ctx, queue.TopicAuditWrite, event); err != nil {
		p.metrics.EventsDropped.Inc()
		p.logger.ErrorContext(ctx, "dropping audit event, enqueue failed",
			"action", event.Action,
			"actor_id", event.ActorID,
			"error", err,
		)
		return
	}
	p.metrics.EventsIngested.Inc()
}
