package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "webhook:dedup:"

// DefaultTTL keeps seen event ids long enough to outlive gateway redelivery.
var DefaultTTL = 48 * time.Hour

// Deduper remembers processed webhook event ids. It is a best-effort
// short-circuit: the order row remains the idempotency authority.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// RedisDeduper implements Deduper on a shared Redis instance.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper builds a deduper with the default TTL.
func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: DefaultTTL}
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, key(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDeduper) Mark(ctx context.Context, eventID string) error {
	return d.client.Set(ctx, key(eventID), 1, d.ttl).Err()
}

func key(eventID string) string {
	return fmt.Sprintf("%s%s", keyPrefix, eventID)
}
