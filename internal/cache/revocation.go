package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "blacklist:"

// RevocationCache keeps revoked token ids in Redis until the token would
// have expired, so no cleanup job is needed
type RevocationCache struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRevocationCache(client redis.Cmdable) *RevocationCache {
	return &RevocationCache{client: client, now: time.Now}
}

func blacklistKey(jti string) string {
	return blacklistPrefix + jti
}

// RevokeToken blacklists jti. Tokens that already expired are skipped.
func (c *RevocationCache) RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time, reason string) error {
	ttl := expiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}

	if err := c.client.Set(ctx, blacklistKey(jti), reason, ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (c *RevocationCache) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := c.client.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return exists > 0, nil
}
