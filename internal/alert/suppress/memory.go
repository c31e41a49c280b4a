package suppress

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-memory Deduplicator for unit tests, with an injectable
// clock.
type Memory struct {
	mu     sync.Mutex
	claims map[string]time.Time // key -> expiry

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// NewMemory creates an empty in-memory deduplicator.
func NewMemory() *Memory {
	return &Memory{claims: make(map[string]time.Time), Now: time.Now}
}

// Claim mirrors SET NX semantics: the first caller within the TTL wins.
func (m *Memory) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	if expiry, ok := m.claims[key]; ok && now.Before(expiry) {
		return false, nil
	}
	m.claims[key] = now.Add(ttl)
	return true, nil
}

// Release drops the claim.
func (m *Memory) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, key)
	return nil
}
