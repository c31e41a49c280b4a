package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchtower/internal/platform/metrics"
	"watchtower/internal/queue"
)

func webhookJob(t *testing.T, payload Payload) queue.Job {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return queue.Job{
		ID:         uuid.New(),
		Topic:      queue.TopicWebhookSend,
		EnqueuedAt: time.Now().UTC(),
		Payload:    body,
	}
}

func newWebhook(url string) *Webhook {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWebhook(url, 2*time.Second, log, metrics.NewWith(prometheus.NewRegistry()))
}

func TestHandle_DeliversPayload(t *testing.T) {
	var got Payload
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	payload := Payload{
		AlertID:   uuid.New(),
		Severity:  "critical",
		Title:     "Cross-tenant access",
		Message:   "agent-1 touched tenant-b",
		TenantID:  "tenant-a",
		RuleID:    "cross-tenant-access",
		Timestamp: time.Now().UTC(),
	}

	err := newWebhook(server.URL).Handle(context.Background(), webhookJob(t, payload))

	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, payload.AlertID, got.AlertID)
	assert.Equal(t, "cross-tenant-access", got.RuleID)
}

func TestHandle_Non2xxIsAFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	err := newWebhook(server.URL).Handle(context.Background(), webhookJob(t, Payload{AlertID: uuid.New()}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestHandle_TransportErrorIsAFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	err := newWebhook(server.URL).Handle(context.Background(), webhookJob(t, Payload{AlertID: uuid.New()}))

	assert.Error(t, err)
}

func TestHandle_DropsMalformedPayload(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	job := queue.Job{ID: uuid.New(), Topic: queue.TopicWebhookSend, Payload: []byte("{broken")}

	err := newWebhook(server.URL).Handle(context.Background(), job)

	assert.NoError(t, err)
	assert.False(t, called)
}

func TestHandle_RetryBudgetAppliesThroughQueue(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	hook := newWebhook(server.URL)
	q := queue.NewMemory()
	q.Register(queue.TopicWebhookSend, hook.Handle, queue.RetryPolicy{MaxAttempts: 3})

	err := q.Enqueue(context.Background(), queue.TopicWebhookSend, Payload{AlertID: uuid.New()})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}
