package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestTokenCache_GetMiss(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewTokenCache(client)

	token, ok, err := cache.Get(context.Background(), "moncash")

	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, token)
}

func TestTokenCache_SetThenGet(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewTokenCache(client)

	require.NoError(t, cache.Set(context.Background(), "stripe", "sk_token_xyz", time.Minute))

	token, ok, err := cache.Get(context.Background(), "stripe")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "sk_token_xyz", token)
}

func TestTokenCache_ExpiresAfterTTL(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewTokenCache(client)

	require.NoError(t, cache.Set(context.Background(), "natcash", "token", time.Second))
	mr.FastForward(2 * time.Second)

	_, ok, err := cache.Get(context.Background(), "natcash")
	require.NoError(t, err)
	require.False(t, ok)
}
