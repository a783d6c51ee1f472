package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// PersistenceFn the limit persistence fn for store limit status, the
// signature of redis.RateLimitN.
type PersistenceFn func(ctx context.Context, key string,
	limit int, period time.Duration, n int) (remaining int, reset time.Duration, allowed bool)

// Memory a fixed window counter per key in this process
type Memory struct {
	cache *ttlcache.Cache[string, int]
}

// NewMemory the in-process limiter holding at most capacity keys, 0 for no bound.
func NewMemory(capacity uint64) *Memory {
	opts := []ttlcache.Option[string, int]{
		ttlcache.WithDisableTouchOnHit[string, int](),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, int](capacity))
	}
	m := &Memory{
		cache: ttlcache.New[string, int](opts...),
	}
	go m.cache.Start()
	return m
}

// AllowN ratelimit allow n times
func (m *Memory) AllowN(_ context.Context, key string,
	limit int, period time.Duration, n int,
) (remaining int, reset time.Duration, allowed bool) {
	memKey := key + "." + strconv.FormatInt(period.Milliseconds(), 10)
	data := m.cache.Get(memKey)
	if data == nil {
		remaining = limit - n
		allowed = remaining >= 0
		if !allowed {
			remaining = 0
		}
		m.cache.Set(memKey, n, period)
		return remaining, period, allowed
	}
	reset = time.Until(data.ExpiresAt())
	count := data.Value()
	remaining = limit - count - n
	allowed = remaining >= 0
	if !allowed {
		remaining = 0
	}
	if allowed && reset > time.Millisecond {
		m.cache.Set(memKey, count+n, reset)
	}
	return remaining, reset, allowed
}

// Reset forget the counter of key for the period
func (m *Memory) Reset(key string, period time.Duration) {
	m.cache.Delete(key + "." + strconv.FormatInt(period.Milliseconds(), 10))
}

// Close stop the expiration loop
func (m *Memory) Close(_ context.Context) error {
	m.cache.Stop()
	return nil
}
