package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func withTestRedis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
}

func TestSetGetJSON(t *testing.T) {
	withTestRedis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, "k", payload{Name: "pothole", Count: 3}, time.Minute))

	var got payload
	found, err := GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "pothole", Count: 3}, got)

	found, err = GetJSON(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAside(t *testing.T) {
	withTestRedis(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(dest *payload) func() error {
		return func() error {
			fetches++
			*dest = payload{Name: "fresh", Count: fetches}
			return nil
		}
	}

	var first payload
	require.NoError(t, Aside(ctx, "k", &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, "fresh", first.Name)

	// Second call is served from the cache; fetch never runs.
	var second payload
	require.NoError(t, Aside(ctx, "k", &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, first, second)

	// After invalidation the fetch runs again.
	Invalidate(ctx, "k")
	var third payload
	require.NoError(t, Aside(ctx, "k", &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, fetches)
}

func TestHelpersWithoutClient(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	// Everything degrades to no-ops rather than errors.
	found, err := GetJSON(ctx, "k", &payload{})
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, "k", payload{}, time.Minute))
	Invalidate(ctx, "k")

	var got payload
	require.NoError(t, Aside(ctx, "k", &got, time.Minute, func() error {
		got = payload{Name: "direct"}
		return nil
	}))
	assert.Equal(t, "direct", got.Name)
}
