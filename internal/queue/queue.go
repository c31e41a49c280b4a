// Package queue carries the pipeline's background jobs over Kafka with
// at-least-once delivery. Producers get fire-and-forget semantics: Enqueue
// returns once the broker has durably accepted the job, never when it has
// been processed.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topics, one per job family. Retention deletes ride a single-partition
// topic so the append-only invariant is never relaxed by two workers at once.
const (
	TopicAuditWrite      = "audit.write"
	TopicAlertEvaluate   = "alert.evaluate"
	TopicWebhookSend     = "alert.webhook"
	TopicRetentionDelete = "retention.delete"
)

// Topics lists every job topic for startup bootstrap.
func Topics() []string {
	return []string{TopicAuditWrite, TopicAlertEvaluate, TopicWebhookSend, TopicRetentionDelete}
}

// SerialTopics marks topics whose handlers must not run concurrently.
func SerialTopics() map[string]bool {
	return map[string]bool{TopicRetentionDelete: true}
}

// Job is the envelope every topic carries. Payload is the job-family
// specific body, marshalled by the producer.
type Job struct {
	ID         uuid.UUID       `json:"id"`
	Topic      string          `json:"topic"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Queue is the producer side of the job bus.
type Queue interface {
	Enqueue(ctx context.Context, topic string, payload any) error
}

// HandlerFunc processes one job. Returning an error makes the runner retry
// per the topic's policy; handlers that must never fail upstream (audit
// writes) swallow errors themselves and return nil.
type HandlerFunc func(ctx context.Context, job Job) error

// RetryPolicy bounds in-process redelivery for a topic. A zero policy means
// a single attempt with no backoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Backoff returns the delay before the given retry. Attempt numbering starts
// at 1, so the first retry waits BaseDelay, the second 2*BaseDelay, then 4x.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	return p.BaseDelay << (attempt - 1)
}

func newJob(topic string, payload any) (Job, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Job{}, nil, err
	}
	job := Job{
		ID:         uuid.New(),
		Topic:      topic,
		EnqueuedAt: time.Now().UTC(),
		Payload:    body,
	}
	envelope, err := json.Marshal(job)
	if err != nil {
		return Job{}, nil, err
	}
	return job, envelope, nil
}
