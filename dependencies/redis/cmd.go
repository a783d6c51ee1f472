package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Set the value with an expiration, 0 keeps the key forever
func (r *Redis) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	if expiration <= 0 {
		return r.client.Do(ctx, r.client.B().Set().Key(key).Value(value).Build()).Error()
	}
	cmd := r.client.B().Set().Key(key).Value(value).Ex(expiration).Build()
	return r.client.Do(ctx, cmd).Error()
}

// Get the value, NotFound when the key does not exist
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	cmd := r.client.B().Get().Key(key).Build()
	data, err := r.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", status.Error(codes.NotFound, key+" not found")
		}
		return "", status.Error(codes.Unavailable, err.Error())
	}
	return data, nil
}

// Exists report whether the key exists
func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.cmdable.Exists(ctx, key).Result()
	if err != nil {
		return false, status.Error(codes.Unavailable, err.Error())
	}
	return n > 0, nil
}

// Delete the keys
func (r *Redis) Delete(ctx context.Context, key ...string) error {
	cmd := r.client.B().Del().Key(key...).Build()
	return r.client.Do(ctx, cmd).Error()
}
