package notification

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupePrefix = "presence:notified:"

// RedisDeduper keeps sent event ids in redis for ttl.
type RedisDeduper struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisDeduper(rdb redis.Cmdable, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, dedupePrefix+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDeduper) Remember(ctx context.Context, eventID string) error {
	return d.rdb.Set(ctx, dedupePrefix+eventID, 1, d.ttl).Err()
}
