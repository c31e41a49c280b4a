// Package store provides the PostgreSQL and in-memory audit log stores.
// The audit_logs table is protected by an append-only trigger (see
// migrations); only DeleteBatch may toggle it, and only inside a single
// transaction so a failed purge can never leave the guard disabled.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"watchtower/internal/audit"
)

// Postgres persists audit records via database/sql.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates the PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const recordColumns = `
	id, timestamp, actor_type, actor_id, actor_name, action,
	target_type, target_id, details, severity,
	ip_address, user_agent, tenant_id, user_id, agent_id
`

// Insert appends one record. Duplicate ids are ignored so a redelivered
// audit-write job stays idempotent.
func (s *Postgres) Insert(ctx context.Context, rec audit.Record) error {
	var details []byte
	if rec.Details != nil {
		var err error
		details, err = json.Marshal(rec.Details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Timestamp,
		string(rec.ActorType),
		rec.ActorID,
		rec.ActorName,
		rec.Action,
		string(rec.TargetType),
		rec.TargetID,
		details,
		string(rec.Severity),
		nullable(rec.IPAddress),
		nullable(rec.UserAgent),
		nullable(rec.TenantID),
		nullable(rec.UserID),
		nullable(rec.AgentID),
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// List returns up to limit records matching the filters ordered by
// (timestamp desc, id desc). A non-empty cursor is the id of the last row of
// the previous page; its (timestamp, id) pair anchors the next page so
// results stay stable under concurrent inserts.
func (s *Postgres) List(ctx context.Context, f audit.Filters, cursor string, limit int) ([]audit.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM audit_logs WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.TenantID != "" {
		query += ` AND tenant_id = ` + arg(f.TenantID)
	}
	if f.AgentID != "" {
		query += ` AND agent_id = ` + arg(f.AgentID)
	}
	if f.UserID != "" {
		query += ` AND user_id = ` + arg(f.UserID)
	}
	if f.Action != "" {
		query += ` AND action = ` + arg(f.Action)
	}
	if f.TargetType != "" {
		query += ` AND target_type = ` + arg(string(f.TargetType))
	}
	if f.Severity != "" {
		query += ` AND severity = ` + arg(string(f.Severity))
	}
	if !f.DateFrom.IsZero() {
		query += ` AND timestamp >= ` + arg(f.DateFrom)
	}
	if !f.DateTo.IsZero() {
		query += ` AND timestamp <= ` + arg(f.DateTo)
	}
	if cursor != "" {
		cursorID, err := uuid.Parse(cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		query += ` AND (timestamp, id) < (SELECT timestamp, id FROM audit_logs WHERE id = ` + arg(cursorID) + `)`
	}

	query += ` ORDER BY timestamp DESC, id DESC LIMIT ` + arg(limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListOlderThan returns every record with a timestamp before cutoff, oldest
// first, for the retention archiver.
func (s *Postgres) ListOlderThan(ctx context.Context, cutoff time.Time) ([]audit.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM audit_logs WHERE timestamp < $1 ORDER BY timestamp ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query expired audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// DeleteBatch removes the given ids inside a single transaction that
// disables the append-only trigger, deletes, and re-enables it. A rollback
// on any failure restores the trigger, so the invariant can never stay
// relaxed. An empty batch performs no toggling at all.
func (s *Postgres) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purge tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `ALTER TABLE audit_logs DISABLE TRIGGER audit_logs_append_only`); err != nil {
		return fmt.Errorf("disable append-only trigger: %w", err)
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM audit_logs WHERE id = ANY($1::uuid[])`, pq.Array(idStrings)); err != nil {
		return fmt.Errorf("delete audit batch: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `ALTER TABLE audit_logs ENABLE TRIGGER audit_logs_append_only`); err != nil {
		return fmt.Errorf("enable append-only trigger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purge tx: %w", err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	var records []audit.Record
	for rows.Next() {
		var (
			rec        audit.Record
			actorType  string
			targetType string
			severity   string
			details    []byte
			ipAddress  sql.NullString
			userAgent  sql.NullString
			tenantID   sql.NullString
			userID     sql.NullString
			agentID    sql.NullString
		)
		err := rows.Scan(
			&rec.ID,
			&rec.Timestamp,
			&actorType,
			&rec.ActorID,
			&rec.ActorName,
			&rec.Action,
			&targetType,
			&rec.TargetID,
			&details,
			&severity,
			&ipAddress,
			&userAgent,
			&tenantID,
			&userID,
			&agentID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}

		rec.ActorType = audit.ActorType(actorType)
		rec.TargetType = audit.TargetType(targetType)
		rec.Severity = audit.Severity(severity)
		rec.IPAddress = ipAddress.String
		rec.UserAgent = userAgent.String
		rec.TenantID = tenantID.String
		rec.UserID = userID.String
		rec.AgentID = agentID.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &rec.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
