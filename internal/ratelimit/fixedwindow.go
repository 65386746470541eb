package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// FixedWindow adapts a ulule limiter to the Limiter interface.
type FixedWindow struct {
	L *limiter.Limiter
}

// NewFixedWindow builds a fixed-window limiter over store.
func NewFixedWindow(store limiter.Store, window time.Duration, max int) FixedWindow {
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	return FixedWindow{L: limiter.New(store, rate)}
}

// NewRedisStore creates a ulule store sharing the service Redis client.
func NewRedisStore(rdb *redis.Client, prefix string) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
}

// Allow increments the counter for key.
func (f FixedWindow) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := f.L.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     int(res.Limit),
		Remaining: int(res.Remaining),
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}
