package cache_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-promo/internal/cache"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := cache.NewJSON(client, "test:", time.Minute)
	ctx := context.Background()

	var dst payload
	found, err := c.Get(ctx, "k", &dst)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, c.Set(ctx, "k", payload{Name: "x", Count: 2}))
	require.True(t, mr.Exists("test:k"))

	found, err = c.Get(ctx, "k", &dst)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, payload{Name: "x", Count: 2}, dst)

	mr.FastForward(2 * time.Minute)
	found, err = c.Get(ctx, "k", &dst)
	require.NoError(t, err)
	require.False(t, found)
}

func TestJSONDisabled(t *testing.T) {
	var nilCache *cache.JSON
	require.False(t, nilCache.Enabled())
	found, err := nilCache.Get(context.Background(), "k", &payload{})
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, nilCache.Set(context.Background(), "k", payload{}))

	require.False(t, cache.NewJSON(nil, "", time.Minute).Enabled())
}

func TestKeyIsStable(t *testing.T) {
	a, err := cache.Key("quote", []payload{{Name: "a", Count: 1}})
	require.NoError(t, err)
	b, err := cache.Key("quote", []payload{{Name: "a", Count: 1}})
	require.NoError(t, err)
	c, err := cache.Key("quote", []payload{{Name: "a", Count: 2}})
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Contains(t, a, "quote:")
}
