package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func TestSlidingWindowAllow(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	l := SlidingWindow{Client: client, Prefix: "test:", Window: 2 * time.Second, Max: 2}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "key")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i)
		require.Equal(t, 2-(i+1), d.Remaining)
	}

	d, err := l.Allow(ctx, "key")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)

	mr.FastForward(2 * time.Second)
	d, err = l.Allow(ctx, "key")
	require.NoError(t, err)
	require.True(t, d.Allowed, "key expires with the window")
}

func TestSlidingWindowWithoutClientAllows(t *testing.T) {
	d, err := SlidingWindow{Max: 3, Window: time.Second}.Allow(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestFixedWindowAllow(t *testing.T) {
	store := memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: "test", CleanUpInterval: time.Minute})
	l := NewFixedWindow(store, time.Minute, 1)
	ctx := context.Background()

	d, err := l.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 1, d.Limit)

	d, err = l.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	d, err = l.Allow(ctx, "ip:5.6.7.8")
	require.NoError(t, err)
	require.True(t, d.Allowed, "keys are counted independently")
}
