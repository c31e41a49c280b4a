package suppress

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const claimKeyPrefix = "suppress:"

// Redis implements the Deduplicator on a shared Redis. SET NX is the atomic
// check-and-set: exactly one concurrent caller wins the claim.
type Redis struct {
	client *redis.Client
}

// NewRedis creates the Redis-backed deduplicator.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Claim attempts to take the suppression marker. Returns false when another
// alert already holds it for this window.
func (r *Redis) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	// The value is irrelevant; key existence is the marker.
	ok, err := r.client.SetNX(ctx, claimKeyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim suppression %s: %w", key, err)
	}
	return ok, nil
}

// Release drops the marker so a later event can alert again.
func (r *Redis) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, claimKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release suppression %s: %w", key, err)
	}
	return nil
}
