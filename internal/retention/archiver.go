// Package retention archives and purges audit records past the retention
// horizon. The archive is written before any delete job is queued, so a
// record can only disappear from the log after it exists on disk.
package retention

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"watchtower/internal/audit"
	"watchtower/internal/platform/config"
	"watchtower/internal/platform/metrics"
	"watchtower/internal/queue"
)

// DeleteBatch is the retention.delete job payload: one bounded slice of
// record ids for a single invariant-relax/delete/restore cycle.
type DeleteBatch struct {
	IDs []uuid.UUID `json:"ids"`
}

// Archiver runs one archive-and-purge pass per invocation.
type Archiver struct {
	store   audit.Store
	queue   queue.Queue
	cfg     config.RetentionConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	now func() time.Time
}

// NewArchiver creates the retention archiver.
func NewArchiver(store audit.Store, q queue.Queue, cfg config.RetentionConfig, logger *slog.Logger, m *metrics.Metrics) *Archiver {
	return &Archiver{
		store:   store,
		queue:   q,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Run snapshots every record older than the retention horizon into one dated
// JSON file, then queues delete batches. With nothing eligible it returns
// without writing a file or queuing a single job.
func (a *Archiver) Run(ctx context.Context) error {
	cutoff := a.now().UTC().AddDate(0, 0, -a.cfg.Days)

	records, err := a.store.ListOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list expired records: %w", err)
	}
	if len(records) == 0 {
		a.logger.InfoContext(ctx, "retention run: nothing to archive",
			"cutoff", cutoff,
		)
		return nil
	}

	path, err := a.writeArchive(records)
	if err != nil {
		return err
	}

	batches := 0
	for start := 0; start < len(records); start += a.batchSize() {
		end := start + a.batchSize()
		if end > len(records) {
			end = len(records)
		}
		batch := DeleteBatch{IDs: make([]uuid.UUID, 0, end-start)}
		for _, rec := range records[start:end] {
			batch.IDs = append(batch.IDs, rec.ID)
		}
		if err := a.queue.Enqueue(ctx, queue.TopicRetentionDelete, batch); err != nil {
			// Already-queued batches will purge; the rest stay in the log
			// and the next run re-archives them. Duplicated archive rows
			// are harmless, lost ones would not be.
			return fmt.Errorf("enqueue delete batch: %w", err)
		}
		batches++
	}

	a.metrics.ArchiveRuns.Inc()
	a.logger.InfoContext(ctx, "retention run archived records",
		"records", len(records),
		"batches", batches,
		"archive", path,
	)
	return nil
}

func (a *Archiver) batchSize() int {
	if a.cfg.BatchSize <= 0 {
		return 500
	}
	return a.cfg.BatchSize
}

func (a *Archiver) writeArchive(records []audit.Record) (string, error) {
	if err := os.MkdirAll(a.cfg.ArchiveDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	name := fmt.Sprintf("audit-archive-%s.json", a.now().UTC().Format("2006-01-02"))
	path := filepath.Join(a.cfg.ArchiveDir, name)

	merged, err := mergeExisting(path, records)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return "", fmt.Errorf("marshal archive: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write archive %s: %w", path, err)
	}
	return path, nil
}

// mergeExisting folds records already archived under path into the new
// snapshot. A rerun on the same day must not truncate rows that an earlier
// pass archived and purged; those rows only exist on disk now.
func mergeExisting(path string, records []audit.Record) ([]audit.Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}

	var prior []audit.Record
	if err := json.Unmarshal(data, &prior); err != nil {
		return nil, fmt.Errorf("parse archive %s: %w", path, err)
	}

	seen := make(map[uuid.UUID]bool, len(prior))
	for _, rec := range prior {
		seen[rec.ID] = true
	}
	for _, rec := range records {
		if !seen[rec.ID] {
			prior = append(prior, rec)
		}
	}
	return prior, nil
}
