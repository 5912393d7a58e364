package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Expired entries are dropped lazily.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	closed  bool
	now     func() time.Time
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// Get returns the value for key, or ErrNotFound on miss or expiry.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	closed := s.closed
	s.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, ErrNotFound
	}

	if !s.now().Before(entry.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur == entry {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	return entry.value, nil
}

// Set stores value for ttl. TTL <= 0 stores nothing.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.entries[key] = &cacheEntry{
		value:     value,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Delete removes key. Idempotent - no error on miss.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.entries, key)
	return nil
}

// DeleteByPattern removes every live key matching the glob pattern.
func (s *MemoryStore) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if ok, _ := path.Match(pattern, key); !ok {
			continue
		}
		if now.Before(entry.expiresAt) {
			removed++
		}
		delete(s.entries, key)
	}
	return removed, nil
}

// Ping fails only after Close.
func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close drops every entry. Further calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.entries = make(map[string]*cacheEntry)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet dropped.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
