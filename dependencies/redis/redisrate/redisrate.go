// Package redisrate a fixed window counter on redis, the idea comes from
// https://github.com/go-redis/redis_rate/tree/v7
package redisrate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

const redisPrefix = "rate"

// Limiter controls how frequently events are allowed to happen.
type Limiter struct {
	redisCli rueidis.Client
}

// NewLimiter new redis rate limiter.
func NewLimiter(redisCli rueidis.Client) *Limiter {
	return &Limiter{
		redisCli: redisCli,
	}
}

// Reset the counter of name in the current window.
func (l *Limiter) Reset(ctx context.Context, name string, period time.Duration) error {
	slot, _ := window(time.Now(), period)
	return l.redisCli.Do(ctx, l.redisCli.B().Del().Key(allowName(name, slot)).Build()).Error()
}

// AllowN reports whether n more events of name fit into the current window of
// period, which allows up to maxn events. delay is the time until the window resets.
func (l *Limiter) AllowN(ctx context.Context,
	name string, maxn int, period time.Duration, n int,
) (remaining int, delay time.Duration, allow bool, err error) {
	slot, delay := window(time.Now(), period)
	var count int
	count, err = l.incr(ctx, allowName(name, slot), periodSeconds(period), n)
	if err != nil {
		return
	}
	allow = count <= maxn
	remaining = max(maxn-count, 0)
	return
}

// window the slot number of now and the time left in it, periods shorter
// than a second count as one second.
func window(now time.Time, period time.Duration) (slot int64, left time.Duration) {
	secs := periodSeconds(period)
	unix := now.Unix()
	slot = unix / secs
	return slot, time.Duration((slot+1)*secs-unix) * time.Second
}

func periodSeconds(period time.Duration) int64 {
	return max(int64(period/time.Second), 1)
}

func (l *Limiter) incr(ctx context.Context, name string, periodSecond int64, n int) (int, error) {
	resps := l.redisCli.DoMulti(ctx,
		l.redisCli.B().Incrby().Key(name).Increment(int64(n)).Build(),
		l.redisCli.B().Expire().Key(name).Seconds(periodSecond+30).Build(),
	)
	for _, v := range resps {
		if err := v.Error(); err != nil {
			return 0, err
		}
	}
	count, err := resps[0].AsInt64()
	return int(count), err
}

func allowName(name string, slot int64) string {
	return fmt.Sprintf("%s:%s-%d", redisPrefix, name, slot)
}
