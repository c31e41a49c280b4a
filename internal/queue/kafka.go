package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"watchtower/internal/platform/kafka"
	"watchtower/internal/platform/metrics"
)

// KafkaQueue publishes job envelopes to the broker.
type KafkaQueue struct {
	producer *kafka.Producer
}

// NewKafka wraps a producer as a Queue.
func NewKafka(producer *kafka.Producer) *KafkaQueue {
	return &KafkaQueue{producer: producer}
}

// Enqueue marshals the payload into a Job envelope and waits for the broker
// acknowledgement. The job ID doubles as the record key.
func (q *KafkaQueue) Enqueue(ctx context.Context, topic string, payload any) error {
	job, envelope, err := newJob(topic, payload)
	if err != nil {
		return fmt.Errorf("marshal job for %s: %w", topic, err)
	}
	if err := q.producer.Produce(ctx, topic, []byte(job.ID.String()), envelope); err != nil {
		return fmt.Errorf("enqueue %s: %w", topic, err)
	}
	return nil
}

// Runner adapts a HandlerFunc plus a RetryPolicy into the consumer's Handler
// interface. Retries happen in-process with exponential backoff; once the
// budget is spent the job is abandoned and the error surfaces to the
// consumer, which logs it and commits.
type Runner struct {
	topic   string
	handler HandlerFunc
	policy  RetryPolicy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRunner builds the per-topic handler runner.
func NewRunner(topic string, handler HandlerFunc, policy RetryPolicy, logger *slog.Logger, m *metrics.Metrics) *Runner {
	return &Runner{topic: topic, handler: handler, policy: policy, logger: logger, metrics: m}
}

// Handle decodes the envelope and drives the retry loop.
func (r *Runner) Handle(ctx context.Context, msg *kafka.Message) error {
	var job Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		// A malformed envelope will never succeed; drop it.
		r.logger.Warn("discarding malformed job",
			"topic", r.topic,
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= r.policy.attempts(); attempt++ {
		lastErr = r.handler(ctx, job)
		if lastErr == nil {
			return nil
		}
		if attempt == r.policy.attempts() {
			break
		}
		r.metrics.QueueRetries.WithLabelValues(r.topic).Inc()
		r.logger.Warn("job failed, retrying",
			"topic", r.topic,
			"job_id", job.ID,
			"attempt", attempt,
			"error", lastErr,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.policy.Backoff(attempt)):
		}
	}
	return fmt.Errorf("job %s abandoned after %d attempts: %w", job.ID, r.policy.attempts(), lastErr)
}
