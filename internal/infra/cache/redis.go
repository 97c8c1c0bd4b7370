// Package cache provides a Redis-backed save store for hosts that already run Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MRamiBalles/CookieClicker/internal/infra/storage"
)

// RedisClient is the subset of redis.Cmdable the store needs.
// This allows for easy mocking in tests.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore implements storage.KVStore on Redis strings.
type RedisStore struct {
	client     RedisClient
	prefix     string
	expiration time.Duration
}

var _ storage.KVStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. Keys never expire.
func NewRedisStore(client RedisClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "cookie:",
	}
}

// DialRedis connects to addr and verifies the server answers PING.
func DialRedis(ctx context.Context, addr string) (*RedisStore, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return NewRedisStore(client), client, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("failed to read %q: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.expiration).Err(); err != nil {
		if isOOM(err) {
			return fmt.Errorf("failed to write %q: %w: %v", key, storage.ErrQuotaExceeded, err)
		}
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// isOOM reports the error Redis returns once maxmemory is reached with noeviction.
func isOOM(err error) bool {
	var rerr redis.Error
	if !errors.As(err, &rerr) {
		return false
	}
	return strings.HasPrefix(rerr.Error(), "OOM ")
}
