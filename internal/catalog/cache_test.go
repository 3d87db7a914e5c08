package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-api/internal/catalog"
)

func newTestCache(t *testing.T) *catalog.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return catalog.NewCache(client, time.Minute)
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := newTestCache(t)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var missing payload
	hit, err := cache.GetJSON(ctx, "k", &missing)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, cache.SetJSON(ctx, "k", payload{Name: "espresso", Count: 3}))

	var got payload
	hit, err = cache.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "espresso", got.Name)
	require.Equal(t, 3, got.Count)

	require.NoError(t, cache.Delete(ctx, "k"))
	hit, err = cache.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestCacheNilSafe(t *testing.T) {
	ctx := context.Background()
	var cache *catalog.Cache

	var dst struct{}
	hit, err := cache.GetJSON(ctx, "k", &dst)
	require.NoError(t, err)
	require.False(t, hit)
	require.NoError(t, cache.SetJSON(ctx, "k", dst))
	require.NoError(t, cache.Delete(ctx, "k"))
}
