package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
	defaultExportCap = 10000
)

// Store is the persistence boundary for audit records. The log is
// append-only: Insert is the only write outside the retention purge path,
// and DeleteBatch is the only component allowed to relax that invariant.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	// List returns up to limit records matching the filters, ordered by
	// (timestamp desc, id desc), starting after the record identified by
	// cursor when cursor is non-empty.
	List(ctx context.Context, f Filters, cursor string, limit int) ([]Record, error)
	// ListOlderThan returns every record with a timestamp before cutoff.
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]Record, error)
	// DeleteBatch removes exactly the given ids, relaxing and unconditionally
	// restoring the append-only invariant around the delete. Missing ids are
	// no-ops so retried batches tolerate partial progress.
	DeleteBatch(ctx context.Context, ids []uuid.UUID) error
}

// Service is the read side of the audit log: cursor-paginated queries and
// bounded exports for administrators.
type Service struct {
	store Store
}

// NewService creates the audit query service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// QueryLogs returns one page of records. The cursor is the id of the last
// row of the previous page; limit defaults to 50 and is capped at 100. One
// extra row is fetched internally to detect whether a next page exists.
func (s *Service) QueryLogs(ctx context.Context, f Filters, cursor string, limit int) (Page, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	rows, err := s.store.List(ctx, f, cursor, limit+1)
	if err != nil {
		return Page{}, fmt.Errorf("query audit logs: %w", err)
	}

	page := Page{Data: rows}
	if len(rows) > limit {
		page.Data = rows[:limit]
		page.HasNextPage = true
		page.NextCursor = page.Data[limit-1].ID.String()
	}
	page.Count = len(page.Data)
	return page, nil
}

// ExportLogs returns up to maxRows matching records for CSV/JSON rendering
// by the transport layer. maxRows defaults to 10000.
func (s *Service) ExportLogs(ctx context.Context, f Filters, maxRows int) ([]Record, error) {
	if maxRows <= 0 {
		maxRows = defaultExportCap
	}
	rows, err := s.store.List(ctx, f, "", maxRows)
	if err != nil {
		return nil, fmt.Errorf("export audit logs: %w", err)
	}
	return rows, nil
}
