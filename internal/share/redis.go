package share

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis"
)

// RedisGrace keeps a record in Redis this long past its expiry so that a
// late Resolve still reports ErrExpired rather than ErrNotFound.
const RedisGrace = 24 * time.Hour

// RedisClient is the subset of *redis.Client used by the Redis backend.
type RedisClient interface {
	Get(key string) *redis.StringCmd
	Set(key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(keys ...string) *redis.IntCmd
	Scan(cursor uint64, match string, count int64) *redis.ScanCmd
}

// Redis stores each record as a JSON string under prefix+id.
type Redis struct {
	c      RedisClient
	prefix string
}

func NewRedis(client RedisClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "share:"
	}
	return &Redis{c: client, prefix: prefix}
}

func (r *Redis) key(id string) string { return r.prefix + id }

func (r *Redis) Put(ctx context.Context, rec Record) error {
	b, err := encodeRecord(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	ttl := rec.ExpiresAt.Sub(rec.CreatedAt) + RedisGrace
	return withClientContext(ctx, r.c).Set(r.key(rec.ID), b, ttl).Err()
}

func (r *Redis) Get(ctx context.Context, id string) (Record, error) {
	b, err := withClientContext(ctx, r.c).Get(r.key(id)).Bytes()
	if err == redis.Nil {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	rec, err := decodeRecord(b)
	if err != nil {
		return Record{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return rec, nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	return withClientContext(ctx, r.c).Del(r.key(id)).Err()
}

func (r *Redis) Sweep(ctx context.Context, now time.Time) (int, error) {
	client := withClientContext(ctx, r.c)
	var cursor uint64
	removed := 0
	for {
		keys, next, err := client.Scan(cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return removed, err
		}
		for _, k := range keys {
			b, err := client.Get(k).Bytes()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return removed, err
			}
			rec, err := decodeRecord(b)
			if err != nil {
				return removed, fmt.Errorf("decode record %s: %w", k, err)
			}
			if !rec.ExpiresAt.Before(now) {
				continue
			}
			if err := client.Del(k).Err(); err != nil {
				return removed, err
			}
			removed++
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func withClientContext(ctx context.Context, c RedisClient) RedisClient {
	if rc, ok := c.(*redis.Client); ok {
		return rc.WithContext(ctx)
	}
	return c
}
