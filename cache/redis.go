package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNilClient is returned when a backend is built without a client.
var ErrNilClient = errors.New("cache: nil client")

const scanBatchSize = 100

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Client goredis.UniversalClient
	// CloseClient is set only when the store exclusively owns the client.
	CloseClient bool
}

// RedisStore is a Store backed by a Redis-protocol server (Redis, Dragonfly, KeyDB).
type RedisStore struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

// NewRedisStore wraps an existing client.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &RedisStore{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

// RedisOptions are connection settings for DialRedis.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// DialRedis builds a client from opts and returns a store that owns it.
// No connection is made until first use.
func DialRedis(opts RedisOptions) *RedisStore {
	timeout := opts.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
	return &RedisStore{rdb: client, closeClient: true}
}

// Get returns the value for key, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: redis get: %w", err)
	}
	return b, nil
}

// Set stores value with SET EX. TTL <= 0 stores nothing.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}
	return nil
}

// DeleteByPattern walks the keyspace with SCAN MATCH and deletes each batch.
// SCAN is used instead of KEYS so large keyspaces do not block the server.
func (s *RedisStore) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return deleted, fmt.Errorf("cache: redis scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := s.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("cache: redis del: %w", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// Ping issues PING.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *RedisStore) Close() error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
