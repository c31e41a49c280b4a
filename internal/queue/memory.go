package queue

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Queue for unit tests. Jobs for topics with a
// registered handler are dispatched synchronously on Enqueue, applying the
// same retry policy the Kafka runner would; every job is also recorded so
// tests can assert on what was enqueued.
type Memory struct {
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	policies map[string]RetryPolicy
	jobs     map[string][]Job
}

// NewMemory creates an empty in-memory queue.
func NewMemory() *Memory {
	return &Memory{
		handlers: make(map[string]HandlerFunc),
		policies: make(map[string]RetryPolicy),
		jobs:     make(map[string][]Job),
	}
}

// Register attaches a handler (and its retry policy) to a topic.
func (m *Memory) Register(topic string, handler HandlerFunc, policy RetryPolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	m.policies[topic] = policy
}

// Enqueue records the job and, when a handler is registered, processes it
// inline. Backoff delays are skipped; tests care about attempt counts, not
// wall-clock pacing.
func (m *Memory) Enqueue(ctx context.Context, topic string, payload any) error {
	job, _, err := newJob(topic, payload)
	if err != nil {
		return fmt.Errorf("marshal job for %s: %w", topic, err)
	}

	m.mu.Lock()
	m.jobs[topic] = append(m.jobs[topic], job)
	handler, ok := m.handlers[topic]
	policy := m.policies[topic]
	m.mu.Unlock()

	if !ok {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= policy.attempts(); attempt++ {
		if lastErr = handler(ctx, job); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("job %s abandoned after %d attempts: %w", job.ID, policy.attempts(), lastErr)
}

// Jobs returns a copy of everything enqueued on a topic.
func (m *Memory) Jobs(topic string) []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, len(m.jobs[topic]))
	copy(out, m.jobs[topic])
	return out
}
