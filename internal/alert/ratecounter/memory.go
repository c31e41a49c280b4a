package ratecounter

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count     int64
	expiresAt time.Time
}

// Memory is an in-memory Counter for unit tests, with an injectable clock.
type Memory struct {
	mu      sync.Mutex
	buckets map[string]bucket

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// NewMemory creates an empty in-memory counter.
func NewMemory() *Memory {
	return &Memory{buckets: make(map[string]bucket), Now: time.Now}
}

// Increment mirrors the Redis semantics: expired buckets restart at zero and
// every hit refreshes the TTL.
func (m *Memory) Increment(ctx context.Context, ruleID, entityKey string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	key := bucketKey(ruleID, entityKey)

	b, ok := m.buckets[key]
	if !ok || now.After(b.expiresAt) {
		b = bucket{}
	}
	b.count++
	b.expiresAt = now.Add(window)
	m.buckets[key] = b
	return b.count, nil
}
