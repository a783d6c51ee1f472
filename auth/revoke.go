package auth

import (
	"context"
	"time"

	"github.com/saba2003/devcamper-api/dependencies/redis"
)

const revokedPrefix = "devcamper:revoked:"

// RedisRevoker keep the revoked token ids in redis so every instance rejects them
type RedisRevoker struct {
	Redis *redis.Redis
}

// Revoke the id for ttl
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return r.Redis.Set(ctx, revokedPrefix+tokenID, "1", ttl)
}

// Revoked report whether the id was revoked
func (r *RedisRevoker) Revoked(ctx context.Context, tokenID string) (bool, error) {
	return r.Redis.Exists(ctx, revokedPrefix+tokenID)
}
