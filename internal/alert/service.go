package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"watchtower/internal/alert/suppress"
	"watchtower/internal/audit"
	"watchtower/internal/platform/metrics"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 100
)

// Store is the persistence boundary for alerts.
type Store interface {
	Insert(ctx context.Context, a Alert) error
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy string, at time.Time) (Alert, error)
	List(ctx context.Context, severity audit.Severity, resolved *bool, limit int) ([]Alert, error)
}

// Service creates, resolves, and queries alerts behind the suppression gate.
type Service struct {
	store   Store
	dedup   suppress.Deduplicator
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics

	now func() time.Time
}

// NewService wires the alert service. window is the suppression cooldown.
func NewService(store Store, dedup suppress.Deduplicator, window time.Duration, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		dedup:   dedup,
		window:  window,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Create persists a new alert unless one for the same (rule, tenant) is
// still inside the suppression window, in which case it returns (nil, nil).
// The suppression claim is taken before the insert; the atomic SET NX is
// what guarantees at-most-one alert per window under concurrent evaluations.
// If the insert then fails, the claim is released so the next matching event
// can still alert.
func (s *Service) Create(ctx context.Context, severity audit.Severity, title, message, tenantID, ruleID string) (*Alert, error) {
	key := suppress.Key(ruleID, tenantID)

	claimed, err := s.dedup.Claim(ctx, key, s.window)
	if err != nil {
		return nil, fmt.Errorf("claim suppression: %w", err)
	}
	if !claimed {
		s.metrics.AlertsSuppressed.WithLabelValues(ruleID).Inc()
		s.logger.DebugContext(ctx, "alert suppressed",
			"rule", ruleID,
			"tenant_id", tenantID,
		)
		return nil, nil
	}

	a := Alert{
		ID:        uuid.New(),
		Severity:  severity,
		Title:     title,
		Message:   message,
		TenantID:  tenantID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Insert(ctx, a); err != nil {
		if relErr := s.dedup.Release(ctx, key); relErr != nil {
			s.logger.ErrorContext(ctx, "release suppression claim",
				"rule", ruleID,
				"error", relErr,
			)
		}
		return nil, fmt.Errorf("insert alert: %w", err)
	}

	s.metrics.AlertsCreated.WithLabelValues(ruleID).Inc()
	s.logger.InfoContext(ctx, "alert created",
		"alert_id", a.ID,
		"rule", ruleID,
		"severity", string(severity),
		"tenant_id", tenantID,
	)
	return &a, nil
}

// Resolve marks an alert resolved. Returns sentinel.ErrNotFound (wrapped)
// for unknown ids; resolving twice overwrites the resolution metadata.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, resolvedBy string) (Alert, error) {
	a, err := s.store.Resolve(ctx, id, resolvedBy, s.now().UTC())
	if err != nil {
		return Alert{}, fmt.Errorf("resolve alert %s: %w", id, err)
	}
	return a, nil
}

// Query returns alerts newest first. limit defaults to 50 and caps at 100.
func (s *Service) Query(ctx context.Context, severity audit.Severity, resolved *bool, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	alerts, err := s.store.List(ctx, severity, resolved, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	return alerts, nil
}
