package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNotFound   = errors.New("cache: key not found")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
	ErrClosed     = errors.New("cache: store is closed")
	ErrDisabled   = errors.New("cache: disabled")
)

// Store is a key-value backend with per-key expiry and glob pattern deletes.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods honor cancellation/deadlines where the backend allows.
// - Get returns ErrNotFound on miss or expiry.
// - Set with ttl <= 0 stores nothing.
// - Delete and DeleteByPattern are idempotent.
// - Patterns use glob syntax where '*' matches any run of characters.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteByPattern removes every key matching pattern and returns the count.
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
