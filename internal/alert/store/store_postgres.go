// Package store provides the PostgreSQL and in-memory alert stores.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"watchtower/internal/alert"
	"watchtower/internal/audit"
	"watchtower/pkg/platform/sentinel"
)

// Postgres persists alerts via database/sql.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates the PostgreSQL-backed alert store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Insert writes one new alert row.
func (s *Postgres) Insert(ctx context.Context, a alert.Alert) error {
	query := `
		INSERT INTO alerts (id, severity, title, message, tenant_id, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var tenantID any
	if a.TenantID != "" {
		tenantID = a.TenantID
	}
	_, err := s.db.ExecContext(ctx, query,
		a.ID,
		string(a.Severity),
		a.Title,
		a.Message,
		tenantID,
		a.Resolved,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Resolve marks the alert resolved and returns the updated row. A second
// resolve overwrites the resolution metadata. Returns sentinel.ErrNotFound
// when no alert exists for the id.
func (s *Postgres) Resolve(ctx context.Context, id uuid.UUID, resolvedBy string, at time.Time) (alert.Alert, error) {
	query := `
		UPDATE alerts
		SET resolved = TRUE, resolved_at = $2, resolved_by = $3
		WHERE id = $1
		RETURNING id, severity, title, message, tenant_id, resolved, resolved_at, resolved_by, created_at
	`
	a, err := scanAlert(s.db.QueryRowContext(ctx, query, id, at, resolvedBy))
	if err != nil {
		if err == sql.ErrNoRows {
			return alert.Alert{}, sentinel.ErrNotFound
		}
		return alert.Alert{}, fmt.Errorf("resolve alert: %w", err)
	}
	return a, nil
}

// List returns alerts newest first. severity and resolved are optional
// filters; resolved uses a pointer so "unfiltered" and "unresolved only"
// stay distinct.
func (s *Postgres) List(ctx context.Context, severity audit.Severity, resolved *bool, limit int) ([]alert.Alert, error) {
	query := `
		SELECT id, severity, title, message, tenant_id, resolved, resolved_at, resolved_by, created_at
		FROM alerts
		WHERE 1=1
	`
	var args []any
	if severity != "" {
		args = append(args, string(severity))
		query += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	if resolved != nil {
		args = append(args, *resolved)
		query += fmt.Sprintf(" AND resolved = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []alert.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return alerts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (alert.Alert, error) {
	var (
		a          alert.Alert
		severity   string
		tenantID   sql.NullString
		resolvedAt sql.NullTime
		resolvedBy sql.NullString
	)
	err := row.Scan(
		&a.ID,
		&severity,
		&a.Title,
		&a.Message,
		&tenantID,
		&a.Resolved,
		&resolvedAt,
		&resolvedBy,
		&a.CreatedAt,
	)
	if err != nil {
		return alert.Alert{}, err
	}
	a.Severity = audit.Severity(severity)
	a.TenantID = tenantID.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	a.ResolvedBy = resolvedBy.String
	return a, nil
}
