package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_GetMiss(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewIdempotencyCache(client)

	body, ok, err := cache.Get(context.Background(), uuid.New(), "key-1")

	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, body)
}

func TestIdempotencyCache_SetThenGet(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewIdempotencyCache(client)
	merchantID := uuid.New()

	require.NoError(t, cache.Set(context.Background(), merchantID, "key-1", []byte(`{"reference":"pay_abc"}`), 24*time.Hour))

	body, ok, err := cache.Get(context.Background(), merchantID, "key-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"reference":"pay_abc"}`, string(body))
}

func TestIdempotencyCache_ScopedByMerchant(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewIdempotencyCache(client)

	merchantA := uuid.New()
	merchantB := uuid.New()

	require.NoError(t, cache.Set(context.Background(), merchantA, "same-key", []byte(`{"ref":"A"}`), time.Hour))

	_, ok, err := cache.Get(context.Background(), merchantB, "same-key")
	require.NoError(t, err)
	require.False(t, ok, "idempotency cache must be scoped per merchant to avoid cross-tenant collisions")
}
