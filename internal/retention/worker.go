package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"watchtower/internal/audit"
	"watchtower/internal/platform/metrics"
	"watchtower/internal/queue"
)

// Purger consumes retention.delete jobs. The store owns the invariant
// handling: it relaxes the append-only guard, deletes exactly the batch ids,
// and restores the guard even when the delete fails. Errors propagate so the
// queue retries the batch; deletes are idempotent, so partial progress on a
// retried batch is safe.
type Purger struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewPurger creates the retention.delete handler.
func NewPurger(store audit.Store, logger *slog.Logger, m *metrics.Metrics) *Purger {
	return &Purger{store: store, logger: logger, metrics: m}
}

// Handle deletes one batch.
func (p *Purger) Handle(ctx context.Context, job queue.Job) error {
	var batch DeleteBatch
	if err := json.Unmarshal(job.Payload, &batch); err != nil {
		p.logger.WarnContext(ctx, "discarding malformed delete batch",
			"job_id", job.ID,
			"error", err,
		)
		return nil
	}
	if len(batch.IDs) == 0 {
		return nil
	}

	if err := p.store.DeleteBatch(ctx, batch.IDs); err != nil {
		return fmt.Errorf("purge batch of %d: %w", len(batch.IDs), err)
	}

	p.metrics.RecordsPurged.Add(float64(len(batch.IDs)))
	p.logger.InfoContext(ctx, "purged audit batch",
		"job_id", job.ID,
		"records", len(batch.IDs),
	)
	return nil
}
