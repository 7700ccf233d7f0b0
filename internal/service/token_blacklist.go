package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/otp-auth-service/pkg/database"
)

const blacklistKeyPrefix = "blacklist:token:"

// TokenBlacklistCache mirrors revoked refresh tokens in Redis.
// Postgres stays the source of truth; a cache miss is never a verdict.
type TokenBlacklistCache struct {
	redis *database.Redis
}

// NewTokenBlacklistCache creates a new token blacklist cache
func NewTokenBlacklistCache(redis *database.Redis) *TokenBlacklistCache {
	return &TokenBlacklistCache{redis: redis}
}

// Add caches a revoked token until it would have expired anyway
func (c *TokenBlacklistCache) Add(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	err := c.redis.Client.Set(ctx, blacklistKeyPrefix+token, "1", ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to add token to blacklist cache: %w", err)
	}
	return nil
}

// Contains checks if a token is in the cache
func (c *TokenBlacklistCache) Contains(ctx context.Context, token string) (bool, error) {
	exists, err := c.redis.Client.Exists(ctx, blacklistKeyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist cache: %w", err)
	}
	return exists > 0, nil
}
