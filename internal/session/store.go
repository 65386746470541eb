package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client-state keys kept per session.
const (
	KeyToken           = "token"
	KeySelectedCity    = "selectedCity"
	KeySelectedCityID  = "selectedCityId"
	KeyCart            = "cart"
	KeyPendingWishlist = "pendingWishlistProduct"
)

const (
	defaultKeyPrefix  = "session:"
	defaultSessionTTL = 30 * 24 * time.Hour
)

// ErrNoSession is returned when an operation needs a session id and none was given.
var ErrNoSession = errors.New("session: missing session id")

// Store is the per-session key/value storage. Each write is independent;
// there is no transaction spanning several keys.
type Store interface {
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID string, keys ...string) error
	GetJSON(ctx context.Context, sessionID, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, sessionID, key string, v any) error
}

// RedisStore keeps each session in one Redis hash and slides its TTL on every write.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed Store.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) hashKey(sessionID string) string {
	return s.prefix + sessionID
}

// Get returns the value stored under key and whether it was present.
func (s *RedisStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	if sessionID == "" {
		return "", false, ErrNoSession
	}
	value, err := s.client.HGet(ctx, s.hashKey(sessionID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key and refreshes the session expiry.
func (s *RedisStore) Set(ctx context.Context, sessionID, key, value string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	hk := s.hashKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, hk, key, value)
	pipe.Expire(ctx, hk, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys from the session. Deleting absent keys is not an error.
func (s *RedisStore) Delete(ctx context.Context, sessionID string, keys ...string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.hashKey(sessionID), keys...).Err(); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

// GetJSON decodes the JSON value under key into dst. It reports whether the key existed.
func (s *RedisStore) GetJSON(ctx context.Context, sessionID, key string, dst any) (bool, error) {
	raw, ok, err := s.Get(ctx, sessionID, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("session decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v as JSON and stores it under key.
func (s *RedisStore) SetJSON(ctx context.Context, sessionID, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("session encode %s: %w", key, err)
	}
	return s.Set(ctx, sessionID, key, string(data))
}
