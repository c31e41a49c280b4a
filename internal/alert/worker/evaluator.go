// Package worker evaluates persisted audit events against the alert rules.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"watchtower/internal/alert"
	"watchtower/internal/alert/rules"
	"watchtower/internal/audit"
	"watchtower/internal/notify"
	"watchtower/internal/queue"
)

// AlertCreator is the slice of the alert service the evaluator needs.
type AlertCreator interface {
	Create(ctx context.Context, severity audit.Severity, title, message, tenantID, ruleID string) (*alert.Alert, error)
}

// Evaluator consumes alert.evaluate jobs: it runs the rule engine over the
// recorded event, creates alerts for matches that survive suppression, and
// queues webhook delivery for critical ones.
type Evaluator struct {
	rules      *rules.Evaluator
	alerts     AlertCreator
	queue      queue.Queue
	webhookURL string
	logger     *slog.Logger
}

// NewEvaluator creates the alert.evaluate handler. webhookURL may be empty,
// which disables webhook delivery entirely.
func NewEvaluator(engine *rules.Evaluator, alerts AlertCreator, q queue.Queue, webhookURL string, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		rules:      engine,
		alerts:     alerts,
		queue:      q,
		webhookURL: webhookURL,
		logger:     logger,
	}
}

// Handle evaluates one persisted record. Rule-engine failures (rate counter
// outages) propagate so the job is redelivered; per-rule alert failures are
// logged and skipped so one bad rule cannot block the rest.
func (e *Evaluator) Handle(ctx context.Context, job queue.Job) error {
	var rec audit.Record
	if err := json.Unmarshal(job.Payload, &rec); err != nil {
		e.logger.WarnContext(ctx, "discarding malformed evaluation job",
			"job_id", job.ID,
			"error", err,
		)
		return nil
	}

	conditions, err := e.rules.Evaluate(ctx, rec.Event)
	if err != nil {
		return fmt.Errorf("evaluate record %s: %w", rec.ID, err)
	}

	for _, cond := range conditions {
		if !cond.Matched {
			continue
		}
		rule, ok := e.rules.Rule(cond.RuleID)
		if !ok {
			continue
		}

		title, message := alertText(rule, cond, rec)
		created, err := e.alerts.Create(ctx, rule.Severity, title, message, rec.TenantID, rule.ID)
		if err != nil {
			e.logger.ErrorContext(ctx, "create alert",
				"rule", rule.ID,
				"record_id", rec.ID,
				"error", err,
			)
			continue
		}
		if created == nil {
			// Suppressed.
			continue
		}

		if rule.Severity == audit.SeverityCritical && e.webhookURL != "" {
			payload := notify.Payload{
				AlertID:   created.ID,
				Severity:  string(created.Severity),
				Title:     created.Title,
				Message:   created.Message,
				TenantID:  created.TenantID,
				RuleID:    rule.ID,
				Timestamp: created.CreatedAt,
			}
			if err := e.queue.Enqueue(ctx, queue.TopicWebhookSend, payload); err != nil {
				e.logger.ErrorContext(ctx, "enqueue webhook delivery",
					"alert_id", created.ID,
					"error", err,
				)
			}
		}
	}
	return nil
}

func alertText(rule alert.Rule, cond alert.Condition, rec audit.Record) (title, message string) {
	title = rule.Name
	switch rule.Mode {
	case alert.ModeRateThreshold:
		message = fmt.Sprintf("%s: %d occurrences of %s for %s within %s",
			rule.Name, cond.CurrentCount, rec.Action, cond.EntityKey, rule.Window)
	default:
		message = fmt.Sprintf("%s: %s by %s %s on %s %s",
			rule.Name, rec.Action, rec.ActorType, rec.ActorID, rec.TargetType, rec.TargetID)
	}
	return title, message
}
