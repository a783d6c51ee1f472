package redis

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/redis/rueidis"
	"github.com/saba2003/devcamper-api/dependencies/redis/redisrate"
	"github.com/saba2003/devcamper-api/log"
	"golang.org/x/time/rate"
)

// RateLimitN count n events of key in the current period window. A nil
// Redis allows everything, a failing redis falls back to a local limiter.
func (r *Redis) RateLimitN(ctx context.Context, key string, limit int,
	period time.Duration, n int,
) (remaining int, reset time.Duration, allowed bool) {
	if r == nil || r.client == nil {
		allowed = true
		return
	}
	return r.rateLimiter.rateLimitN(ctx, key, limit, period, n)
}

func newRateLimiter(redisClient rueidis.Client,
	checkInterval, cleanupDuration time.Duration,
) *rateLimiter {
	r := &rateLimiter{
		redis: redisrate.NewLimiter(redisClient),
		done:  make(chan struct{}),
	}
	go func() {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				return
			case <-ticker.C:
			}
			r.limiters.Range(func(key, value any) bool {
				if time.Since(value.(*timerRate).seen()) > cleanupDuration {
					r.limiters.Delete(key)
				}
				return true
			})
		}
	}()
	return r
}

type rateLimiter struct {
	redis    *redisrate.Limiter
	limiters sync.Map
	done     chan struct{}
	once     sync.Once
}

func (r *rateLimiter) stop() {
	r.once.Do(func() { close(r.done) })
}

func (r *rateLimiter) rateLimitN(ctx context.Context, key string, limit int,
	period time.Duration, n int,
) (remaining int, reset time.Duration, allowed bool) {
	// Prevent special strings from appearing in key
	key = base64.RawURLEncoding.EncodeToString([]byte(key))
	redisCtx, cc := context.WithTimeout(ctx, 300*time.Millisecond)
	remaining, reset, allowed, err := r.redis.AllowN(redisCtx, key, limit, period, n)
	cc()
	if err != nil {
		log.Extract(ctx).Action("redis.RateLimit").Warn(err.Error())
		allowed = r.fallback(key, limit, period, n)
		remaining = limit
		reset = period
	}
	return
}

// fallback a token bucket refilled with limit tokens per period
func (r *rateLimiter) fallback(key string, limit int, period time.Duration, n int) bool {
	now := time.Now()
	limiter := &timerRate{
		limiter: rate.NewLimiter(rate.Limit(float64(limit)/period.Seconds()), limit),
	}
	v, _ := r.limiters.LoadOrStore(key, limiter)
	limiter = v.(*timerRate)
	limiter.touch(now)
	return limiter.limiter.AllowN(now, n)
}

type timerRate struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func (t *timerRate) touch(now time.Time) {
	t.mu.Lock()
	t.lastSeen = now
	t.mu.Unlock()
}

func (t *timerRate) seen() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen
}
