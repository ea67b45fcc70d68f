// Package dedupe remembers webhook fingerprints so a redelivered
// notification is stored once.
package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "vrpay:webhook:"

// DefaultTTL is how long a fingerprint is remembered
const DefaultTTL = 24 * time.Hour

// RedisDeduper claims fingerprints with SET NX and a TTL
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper connects to Redis and checks the connection
func NewRedisDeduper(addr, password string, db int, ttl time.Duration) (*RedisDeduper, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return NewRedisDeduperWithClient(client, ttl), nil
}

// NewRedisDeduperWithClient wraps an existing client
func NewRedisDeduperWithClient(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

// Claim reports false when fingerprint was claimed within the TTL
func (d *RedisDeduper) Claim(ctx context.Context, fingerprint string) (bool, error) {
	ok, err := d.client.SetNX(ctx, keyPrefix+fingerprint, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claiming webhook fingerprint: %w", err)
	}
	return ok, nil
}

// Release forgets a claim
func (d *RedisDeduper) Release(ctx context.Context, fingerprint string) error {
	if err := d.client.Del(ctx, keyPrefix+fingerprint).Err(); err != nil {
		return fmt.Errorf("releasing webhook fingerprint: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (d *RedisDeduper) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (d *RedisDeduper) Close() error {
	return d.client.Close()
}
