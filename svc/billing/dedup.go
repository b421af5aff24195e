package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "mealsub:webhook:"

// SetNXer is the redis command the deduplicator needs. *redis.Client
// satisfies it.
type SetNXer interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// RedisDeduplicator claims event ids with SET NX and a TTL.
type RedisDeduplicator struct {
	client SetNXer
	ttl    time.Duration
}

// NewRedisDeduplicator keeps claims for ttl. A non-positive ttl means 72h.
func NewRedisDeduplicator(client SetNXer, ttl time.Duration) *RedisDeduplicator {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisDeduplicator{client: client, ttl: ttl}
}

func (d *RedisDeduplicator) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupKeyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim webhook event %s: %w", eventID, err)
	}
	return ok, nil
}
