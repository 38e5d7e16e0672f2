package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TokenCache stores OAuth2 client-credential tokens for provider adapters
// (spec §4.C). Concurrent misses may each mint a token; the last writer
// wins — tokens are interchangeable, so no locking is needed.
type TokenCache struct {
	client *goredis.Client
}

// NewTokenCache creates a TokenCache.
func NewTokenCache(client *goredis.Client) *TokenCache {
	return &TokenCache{client: client}
}

func tokenKey(provider string) string {
	return "provider_token:" + provider
}

func (c *TokenCache) Get(ctx context.Context, provider string) (string, bool, error) {
	val, err := c.client.Get(ctx, tokenKey(provider)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *TokenCache) Set(ctx context.Context, provider string, token string, ttl time.Duration) error {
	return c.client.Set(ctx, tokenKey(provider), token, ttl).Err()
}
