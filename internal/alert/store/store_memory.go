package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"watchtower/internal/alert"
	"watchtower/internal/audit"
	"watchtower/pkg/platform/sentinel"
)

// Memory is an in-memory alert store for unit tests.
type Memory struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]alert.Alert

	// FailInserts makes Insert fail, for exercising claim release.
	FailInserts bool
}

// NewMemory creates an empty in-memory alert store.
func NewMemory() *Memory {
	return &Memory{alerts: make(map[uuid.UUID]alert.Alert)}
}

// Insert writes one new alert.
func (s *Memory) Insert(ctx context.Context, a alert.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInserts {
		return errors.New("simulated insert failure")
	}
	s.alerts[a.ID] = a
	return nil
}

// Resolve mirrors the Postgres semantics, including overwrite-on-second-resolve.
func (s *Memory) Resolve(ctx context.Context, id uuid.UUID, resolvedBy string, at time.Time) (alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[id]
	if !ok {
		return alert.Alert{}, sentinel.ErrNotFound
	}
	a.Resolved = true
	a.ResolvedAt = &at
	a.ResolvedBy = resolvedBy
	s.alerts[id] = a
	return a, nil
}

// List returns alerts newest first with optional filters.
func (s *Memory) List(ctx context.Context, severity audit.Severity, resolved *bool, limit int) ([]alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []alert.Alert
	for _, a := range s.alerts {
		if severity != "" && a.Severity != severity {
			continue
		}
		if resolved != nil && a.Resolved != *resolved {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored alerts.
func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}
