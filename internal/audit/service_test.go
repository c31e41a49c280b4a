package audit_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchtower/internal/audit"
	"watchtower/internal/audit/store"
)

func seedRecords(t *testing.T, s *store.Memory, n int) []audit.Record {
	t.Helper()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	records := make([]audit.Record, 0, n)
	for i := 0; i < n; i++ {
		rec := audit.Record{
			ID: uuid.New(),
			Event: audit.Event{
				ActorType: audit.ActorUser,
				ActorID:   fmt.Sprintf("user-%d", i),
				Action:    audit.ActionTenantUpdated,
				Severity:  audit.SeverityInfo,
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			},
		}
		require.NoError(t, s.Insert(context.Background(), rec))
		records = append(records, rec)
	}
	return records
}

func TestQueryLogs_PaginatesWithoutOverlapOrGap(t *testing.T) {
	s := store.NewMemory()
	seedRecords(t, s, 25)
	svc := audit.NewService(s)
	ctx := context.Background()

	seen := make(map[uuid.UUID]bool)
	cursor := ""
	pages := 0
	for {
		page, err := svc.QueryLogs(ctx, audit.Filters{}, cursor, 10)
		require.NoError(t, err)
		pages++

		for _, rec := range page.Data {
			assert.False(t, seen[rec.ID], "record %s returned twice", rec.ID)
			seen[rec.ID] = true
		}
		if !page.HasNextPage {
			assert.Empty(t, page.NextCursor)
			break
		}
		require.NotEmpty(t, page.NextCursor)
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 25)
}

func TestQueryLogs_NewestFirst(t *testing.T) {
	s := store.NewMemory()
	seedRecords(t, s, 5)
	svc := audit.NewService(s)

	page, err := svc.QueryLogs(context.Background(), audit.Filters{}, "", 5)

	require.NoError(t, err)
	require.Len(t, page.Data, 5)
	for i := 1; i < len(page.Data); i++ {
		assert.True(t, !page.Data[i].Timestamp.After(page.Data[i-1].Timestamp))
	}
}

func TestQueryLogs_LimitDefaultsAndCaps(t *testing.T) {
	s := store.NewMemory()
	seedRecords(t, s, 120)
	svc := audit.NewService(s)
	ctx := context.Background()

	page, err := svc.QueryLogs(ctx, audit.Filters{}, "", 0)
	require.NoError(t, err)
	assert.Equal(t, 50, page.Count)
	assert.True(t, page.HasNextPage)

	page, err = svc.QueryLogs(ctx, audit.Filters{}, "", 500)
	require.NoError(t, err)
	assert.Equal(t, 100, page.Count)
}

func TestQueryLogs_LastPageExactFit(t *testing.T) {
	s := store.NewMemory()
	seedRecords(t, s, 10)
	svc := audit.NewService(s)

	page, err := svc.QueryLogs(context.Background(), audit.Filters{}, "", 10)

	require.NoError(t, err)
	assert.Equal(t, 10, page.Count)
	assert.False(t, page.HasNextPage)
	assert.Empty(t, page.NextCursor)
}

func TestQueryLogs_Filters(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	mkRecord := func(action, tenantID string, severity audit.Severity) audit.Record {
		return audit.Record{
			ID: uuid.New(),
			Event: audit.Event{
				ActorType: audit.ActorAgent,
				ActorID:   "agent-1",
				Action:    action,
				Severity:  severity,
				TenantID:  tenantID,
				Timestamp: now,
			},
		}
	}
	require.NoError(t, s.Insert(ctx, mkRecord(audit.ActionAuthLoginFailed, "tenant-a", audit.SeverityWarning)))
	require.NoError(t, s.Insert(ctx, mkRecord(audit.ActionAuthLoginFailed, "tenant-b", audit.SeverityWarning)))
	require.NoError(t, s.Insert(ctx, mkRecord(audit.ActionTenantCreated, "tenant-a", audit.SeverityInfo)))

	svc := audit.NewService(s)

	page, err := svc.QueryLogs(ctx, audit.Filters{TenantID: "tenant-a"}, "", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)

	page, err = svc.QueryLogs(ctx, audit.Filters{TenantID: "tenant-a", Action: audit.ActionAuthLoginFailed}, "", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)

	page, err = svc.QueryLogs(ctx, audit.Filters{Severity: audit.SeverityCritical}, "", 10)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Count)
}

func TestExportLogs_CapsRows(t *testing.T) {
	s := store.NewMemory()
	seedRecords(t, s, 30)
	svc := audit.NewService(s)

	records, err := svc.ExportLogs(context.Background(), audit.Filters{}, 20)

	require.NoError(t, err)
	assert.Len(t, records, 20)
}
