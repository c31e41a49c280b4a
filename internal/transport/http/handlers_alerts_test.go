package httptransport

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchtower/internal/alert"
	"watchtower/internal/audit"
	"watchtower/pkg/testutil"
)

func seedAlert(t *testing.T, e *env, severity audit.Severity, ruleID string) *alert.Alert {
	t.Helper()
	created, err := e.alerts.Create(context.Background(), severity, "title", "message", "tenant-a", ruleID)
	require.NoError(t, err)
	require.NotNil(t, created)
	return created
}

func TestQueryAlerts_ReturnsAll(t *testing.T) {
	e := newEnv(t)
	seedAlert(t, e, audit.SeverityCritical, "rule-a")
	seedAlert(t, e, audit.SeverityWarning, "rule-b")

	rr := testutil.DoRequest(e.router, adminGet(t, e, "/api/v1/alerts"))

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[alertsResponse](t, rr)
	assert.Len(t, resp.Data, 2)
}

func TestQueryAlerts_FilterBySeverityAndResolved(t *testing.T) {
	e := newEnv(t)
	critical := seedAlert(t, e, audit.SeverityCritical, "rule-a")
	seedAlert(t, e, audit.SeverityWarning, "rule-b")
	_, err := e.alerts.Resolve(context.Background(), critical.ID, "operator")
	require.NoError(t, err)

	rr := testutil.DoRequest(e.router, adminGet(t, e, "/api/v1/alerts?severity=critical"))
	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[alertsResponse](t, rr)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, critical.ID, resp.Data[0].ID)

	rr = testutil.DoRequest(e.router, adminGet(t, e, "/api/v1/alerts?resolved=false"))
	testutil.AssertStatusOK(t, rr)
	resp = testutil.UnmarshalResponse[alertsResponse](t, rr)
	require.Len(t, resp.Data, 1)
	assert.False(t, resp.Data[0].Resolved)
}

func TestQueryAlerts_RejectsBadResolved(t *testing.T) {
	e := newEnv(t)

	rr := testutil.DoRequest(e.router, adminGet(t, e, "/api/v1/alerts?resolved=maybe"))

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestQueryAlerts_EmptyResult(t *testing.T) {
	e := newEnv(t)

	rr := testutil.DoRequest(e.router, adminGet(t, e, "/api/v1/alerts"))

	testutil.AssertStatusOK(t, rr)
	resp := testutil.UnmarshalResponse[alertsResponse](t, rr)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
}

func TestResolveAlert_Succeeds(t *testing.T) {
	e := newEnv(t)
	created := seedAlert(t, e, audit.SeverityWarning, "rule-a")

	req := testutil.WithAdminToken(t,
		testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/alerts/"+created.ID.String()+"/resolve",
			map[string]string{"resolvedBy": "operator@example.com"}),
		testSigningKey)
	rr := testutil.DoRequest(e.router, req)

	testutil.AssertStatusOK(t, rr)
	resolved := testutil.UnmarshalResponse[alert.Alert](t, rr)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, "operator@example.com", resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)
}

func TestResolveAlert_UnknownIDIs404(t *testing.T) {
	e := newEnv(t)

	req := testutil.WithAdminToken(t,
		testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/alerts/"+uuid.NewString()+"/resolve",
			map[string]string{"resolvedBy": "operator"}),
		testSigningKey)
	rr := testutil.DoRequest(e.router, req)

	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestResolveAlert_RejectsBadInput(t *testing.T) {
	e := newEnv(t)
	created := seedAlert(t, e, audit.SeverityWarning, "rule-a")

	t.Run("invalid id", func(t *testing.T) {
		req := testutil.WithAdminToken(t,
			testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/alerts/not-a-uuid/resolve",
				map[string]string{"resolvedBy": "operator"}),
			testSigningKey)
		rr := testutil.DoRequest(e.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("missing resolvedBy", func(t *testing.T) {
		req := testutil.WithAdminToken(t,
			testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/alerts/"+created.ID.String()+"/resolve",
				map[string]string{}),
			testSigningKey)
		rr := testutil.DoRequest(e.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := testutil.WithAdminToken(t,
			testutil.NewRequestWithBody(t, http.MethodPost, "/api/v1/alerts/"+created.ID.String()+"/resolve", "{broken"),
			testSigningKey)
		rr := testutil.DoRequest(e.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}
