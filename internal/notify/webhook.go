// Package notify delivers critical alerts to an external webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"watchtower/internal/platform/metrics"
	"watchtower/internal/queue"
)

// Payload is the JSON body POSTed to the destination. It is also the
// alert.webhook job payload, built once when the alert is created so a
// retried delivery always carries identical content.
type Payload struct {
	AlertID   uuid.UUID `json:"alertId"`
	Severity  string    `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	TenantID  string    `json:"tenantId,omitempty"`
	RuleID    string    `json:"ruleId"`
	Timestamp time.Time `json:"timestamp"`
}

// Webhook handles alert.webhook jobs with a single best-effort POST per
// attempt. Errors propagate so the queue's retry policy (bounded attempts,
// exponential backoff) applies; after the budget the job is abandoned.
type Webhook struct {
	url     string
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewWebhook creates the webhook delivery handler.
func NewWebhook(url string, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Webhook {
	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: m,
	}
}

// Handle POSTs the payload. Any transport error or non-2xx response is a
// delivery failure.
func (w *Webhook) Handle(ctx context.Context, job queue.Job) error {
	var payload Payload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		w.logger.WarnContext(ctx, "discarding malformed webhook job",
			"job_id", job.ID,
			"error", err,
		)
		return nil
	}

	w.metrics.WebhookAttempts.Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(job.Payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.metrics.WebhookFailures.Inc()
		return fmt.Errorf("post webhook for alert %s: %w", payload.AlertID, err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		w.metrics.WebhookFailures.Inc()
		return fmt.Errorf("webhook for alert %s returned status %d", payload.AlertID, resp.StatusCode)
	}

	w.logger.InfoContext(ctx, "webhook delivered",
		"alert_id", payload.AlertID,
		"rule", payload.RuleID,
	)
	return nil
}
