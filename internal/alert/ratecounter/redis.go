package ratecounter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis counts in a shared Redis so concurrent workers see one bucket per
// (rule, entity). INCR and EXPIRE ride one pipeline: the increment is the
// native atomic operation, not a read-then-write, so concurrent events from
// the same entity can never under-count.
type Redis struct {
	client *redis.Client
}

// NewRedis creates the Redis-backed counter.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Increment adds one hit and refreshes the bucket TTL.
func (r *Redis) Increment(ctx context.Context, ruleID, entityKey string, window time.Duration) (int64, error) {
	key := bucketKey(ruleID, entityKey)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment rate counter %s: %w", key, err)
	}
	return incr.Val(), nil
}
