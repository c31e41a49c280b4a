// Package suppress deduplicates alert creation: at most one alert per
// (rule, tenant) within the suppression window. The rate counter counts
// before the decision; the suppression claim is taken at the decision.
package suppress

import (
	"context"
	"time"
)

// Deduplicator hands out at-most-one claim per key per TTL. Claim is taken
// BEFORE the alert row is written so concurrent evaluations cannot race to
// create duplicates; Release returns the claim when the write fails.
type Deduplicator interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Key builds the suppression key for a rule and tenant. Events without a
// tenant share a global scope per rule.
func Key(ruleID, tenantID string) string {
	scope := tenantID
	if scope == "" {
		scope = "global"
	}
	return ruleID + ":" + scope
}
