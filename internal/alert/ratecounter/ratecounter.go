// Package ratecounter approximates "N events of kind K for entity E within
// window W" with a fixed-window counter whose TTL extends on every hit.
// This is not a true sliding window: a steady trickle keeps the bucket alive
// indefinitely, which biases toward alerting. Accepted trade-off.
package ratecounter

import (
	"context"
	"time"
)

// Counter increments the bucket for (ruleID, entityKey) and returns the new
// count. The bucket expires window after the most recent increment.
type Counter interface {
	Increment(ctx context.Context, ruleID, entityKey string, window time.Duration) (int64, error)
}

func bucketKey(ruleID, entityKey string) string {
	return "rate:" + ruleID + ":" + entityKey
}
