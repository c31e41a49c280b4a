package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"watchtower/internal/audit"
)

// ErrAppendOnly is returned when a delete is attempted while the
// append-only guard is active.
var ErrAppendOnly = errors.New("audit log is append-only")

// Memory is an in-memory audit store for unit tests. It mirrors the
// Postgres semantics, including the append-only guard around DeleteBatch.
type Memory struct {
	mu         sync.Mutex
	records    map[uuid.UUID]audit.Record
	appendOnly bool

	// FailDeletes makes the raw delete step fail, for exercising the
	// guaranteed-restore path.
	FailDeletes bool
}

// NewMemory creates an empty in-memory store with the append-only guard on.
func NewMemory() *Memory {
	return &Memory{records: make(map[uuid.UUID]audit.Record), appendOnly: true}
}

// Insert appends one record; duplicate ids are ignored.
func (s *Memory) Insert(ctx context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; exists {
		return nil
	}
	s.records[rec.ID] = rec
	return nil
}

// List mirrors the Postgres ordering and cursor semantics.
func (s *Memory) List(ctx context.Context, f audit.Filters, cursor string, limit int) ([]audit.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []audit.Record
	for _, rec := range s.records {
		if matches(rec, f) {
			matched = append(matched, rec)
		}
	}
	sortNewestFirst(matched)

	if cursor != "" {
		cursorID, err := uuid.Parse(cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		idx := -1
		for i, rec := range matched {
			if rec.ID == cursorID {
				idx = i
				break
			}
		}
		// An anchor that matches no row selects nothing, like the keyset
		// subquery in the Postgres store.
		if idx < 0 {
			return nil, nil
		}
		matched = matched[idx+1:]
	}

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// ListOlderThan returns records with a timestamp before cutoff, oldest first.
func (s *Memory) ListOlderThan(ctx context.Context, cutoff time.Time) ([]audit.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []audit.Record
	for _, rec := range s.records {
		if rec.Timestamp.Before(cutoff) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// DeleteBatch relaxes the append-only guard, deletes, and restores the guard
// even when the delete fails. Missing ids are no-ops. Empty batches do not
// touch the guard.
func (s *Memory) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendOnly = false
	defer func() { s.appendOnly = true }()

	return s.deleteLocked(ids)
}

func (s *Memory) deleteLocked(ids []uuid.UUID) error {
	if s.appendOnly {
		return ErrAppendOnly
	}
	if s.FailDeletes {
		return errors.New("simulated delete failure")
	}
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

// AppendOnly reports whether the guard is currently active.
func (s *Memory) AppendOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendOnly
}

// Len returns the number of stored records.
func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func matches(rec audit.Record, f audit.Filters) bool {
	if f.TenantID != "" && rec.TenantID != f.TenantID {
		return false
	}
	if f.AgentID != "" && rec.AgentID != f.AgentID {
		return false
	}
	if f.UserID != "" && rec.UserID != f.UserID {
		return false
	}
	if f.Action != "" && rec.Action != f.Action {
		return false
	}
	if f.TargetType != "" && rec.TargetType != f.TargetType {
		return false
	}
	if f.Severity != "" && rec.Severity != f.Severity {
		return false
	}
	if !f.DateFrom.IsZero() && rec.Timestamp.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && rec.Timestamp.After(f.DateTo) {
		return false
	}
	return true
}

func sortNewestFirst(records []audit.Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].ID.String() > records[j].ID.String()
	})
}
