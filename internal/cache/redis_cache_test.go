package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	c := NewRedisCache(nil, time.Minute)
	var dest map[string]int

	assert.ErrorIs(t, c.Get(context.Background(), "k", &dest), ErrCacheMiss)
	assert.NoError(t, c.Set(context.Background(), "k", map[string]int{"a": 1}))
	assert.NoError(t, c.DeletePattern(context.Background(), CompliancePattern()))

	var nilCache *RedisCache
	assert.ErrorIs(t, nilCache.Get(context.Background(), "k", &dest), ErrCacheMiss)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "sla:compliance:all|-|-", ComplianceKey("all|-|-"))
	assert.Equal(t, "sla:compliance:*", CompliancePattern())

	deadline := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "sla:breach:t-1:1704153600", BreachKey("t-1", deadline))
	assert.NotEqual(t, BreachKey("t-1", deadline), BreachKey("t-1", deadline.Add(time.Hour)))
}

func TestDeduperWithoutClientReportsEveryBreach(t *testing.T) {
	d := NewBreachDeduper(nil, time.Hour)
	first, err := d.MarkBreached(context.Background(), "t-1", time.Now())
	require.NoError(t, err)
	assert.True(t, first)
}
