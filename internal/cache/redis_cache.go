package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

const (
	complianceKeyPrefix = "sla:compliance:"
	breachKeyPrefix     = "sla:breach:"
)

// RedisCache stores JSON values with a fixed TTL.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache wraps client. A non-positive ttl disables caching: Set becomes a
// no-op and Get always misses.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get decodes the value stored under key into dest.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return ErrCacheMiss
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("get %s from cache: %w", key, err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return nil
}

// Set stores value under key with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s in cache: %w", key, err)
	}
	return nil
}

// DeletePattern removes every key matching pattern.
func (c *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	if c == nil || c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

// ComplianceKey namespaces a compliance snapshot by its filter.
func ComplianceKey(filterKey string) string {
	return complianceKeyPrefix + filterKey
}

// CompliancePattern matches every cached compliance snapshot.
func CompliancePattern() string {
	return complianceKeyPrefix + "*"
}

// BreachDeduper remembers which breaches have already been reported.
type BreachDeduper struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewBreachDeduper builds a deduper whose markers expire after ttl.
func NewBreachDeduper(client redis.Cmdable, ttl time.Duration) *BreachDeduper {
	return &BreachDeduper{client: client, ttl: ttl}
}

// MarkBreached returns true the first time a ticket is reported as breached for
// a given deadline. Changing the deadline makes the ticket reportable again.
func (d *BreachDeduper) MarkBreached(ctx context.Context, ticketID string, deadline time.Time) (bool, error) {
	if d == nil || d.client == nil {
		return true, nil
	}
	ok, err := d.client.SetNX(ctx, BreachKey(ticketID, deadline), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark breach %s: %w", ticketID, err)
	}
	return ok, nil
}

// BreachKey identifies one breach of one deadline.
func BreachKey(ticketID string, deadline time.Time) string {
	return fmt.Sprintf("%s%s:%d", breachKeyPrefix, ticketID, deadline.Unix())
}
