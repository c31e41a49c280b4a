// Package worker persists queued audit events as immutable records.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"watchtower/internal/audit"
	"watchtower/internal/platform/metrics"
	"watchtower/internal/queue"
)

// Persister consumes audit-write jobs. Each job becomes exactly one record;
// the job id doubles as the record id so redelivered jobs stay idempotent.
// After a successful write it chains an alert-evaluate job carrying the
// persisted record.
type Persister struct {
	store   audit.Store
	queue   queue.Queue
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewPersister creates the audit-write handler.
func NewPersister(store audit.Store, q queue.Queue, logger *slog.Logger, m *metrics.Metrics) *Persister {
	return &Persister{store: store, queue: q, logger: logger, metrics: m}
}

// Handle always returns nil: audit-write failures are logged and dropped
// rather than retried, so a storage outage degrades audit durability instead
// of availability. Compliance-wise this is a deliberate trade-off.
func (p *Persister) Handle(ctx context.Context, job queue.Job) error {
	var event audit.Event
	if err := json.Unmarshal(job.Payload, &event); err != nil {
		p.logger.WarnContext(ctx, "discarding malformed audit event",
			"job_id", job.ID,
			"error", err,
		)
		return nil
	}

	rec := audit.Record{ID: job.ID, Event: event}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = job.EnqueuedAt
	}

	start := time.Now()
	if err := p.store.Insert(ctx, rec); err != nil {
		p.metrics.EventsDropped.Inc()
		p.logger.ErrorContext(ctx, "audit write failed, dropping event",
			"job_id", job.ID,
			"action", rec.Action,
			"error", err,
		)
		return nil
	}
	p.metrics.PersistLatencyMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	p.metrics.EventsPersisted.Inc()

	// Fire-and-forget chaining: evaluation rides its own topic so a slow
	// rule engine never backs up persistence.
	if err := p.queue.Enqueue(ctx, queue.TopicAlertEvaluate, rec); err != nil {
		p.logger.ErrorContext(ctx, "enqueue alert evaluation",
			"record_id", rec.ID,
			"action", rec.Action,
			"error", err,
		)
	}
	return nil
}
