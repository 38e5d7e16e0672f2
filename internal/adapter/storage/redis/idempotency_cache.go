package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache caches create-payment response bodies keyed by
// (merchant_id, key), per SPEC_FULL.md's merchant-scoped Open Question
// resolution — the spec.md text describes a global `idempotency:{key}`
// key but flags cross-tenant collision as an open issue; this cache
// implements the scoped variant.
type IdempotencyCache struct {
	client *goredis.Client
}

// NewIdempotencyCache creates an IdempotencyCache.
func NewIdempotencyCache(client *goredis.Client) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

func idempotencyKey(merchantID uuid.UUID, key string) string {
	return "idempotency:" + merchantID.String() + ":" + key
}

func (c *IdempotencyCache) Get(ctx context.Context, merchantID uuid.UUID, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, idempotencyKey(merchantID, key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *IdempotencyCache) Set(ctx context.Context, merchantID uuid.UUID, key string, response []byte, ttl time.Duration) error {
	return c.client.Set(ctx, idempotencyKey(merchantID, key), response, ttl).Err()
}
