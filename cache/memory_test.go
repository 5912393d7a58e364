package cache

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get on empty store = %v, want ErrNotFound", err)
	}

	value := []byte("payload")
	if err := s.Set(ctx, "k", value, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Errorf("Get = %q, want %q", got, value)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete should be idempotent, got %v", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Set(ctx, "k", []byte("v"), 30*time.Second)

	now = now.Add(29 * time.Second)
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("Get before expiry = %v", err)
	}

	now = now.Add(time.Second)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get at expiry = %v, want ErrNotFound", err)
	}
	if s.Len() != 0 {
		t.Errorf("expired entry should be dropped, Len = %d", s.Len())
	}
}

func TestMemoryStore_ZeroTTL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, ttl := range []time.Duration{0, -time.Second} {
		if err := s.Set(ctx, "k", []byte("v"), ttl); err != nil {
			t.Fatalf("Set(ttl=%v) = %v", ttl, err)
		}
	}
	if s.Len() != 0 {
		t.Errorf("non-positive TTL should store nothing, Len = %d", s.Len())
	}
}

func TestMemoryStore_DeleteByPattern(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	keys := []string{
		"dolibarr:tool:get_customers:aaaa",
		"dolibarr:tool:get_customers:bbbb",
		"dolibarr:tool:get_customer_by_id:cccc",
		"dolibarr:tool:get_products:dddd",
	}
	for _, k := range keys {
		_ = s.Set(ctx, k, []byte("v"), time.Minute)
	}

	n, err := s.DeleteByPattern(ctx, "dolibarr:tool:get_customers:*")
	if err != nil {
		t.Fatalf("DeleteByPattern error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteByPattern removed %d, want 2", n)
	}
	if s.Len() != 2 {
		t.Errorf("Len after delete = %d, want 2", s.Len())
	}
	if _, err := s.Get(ctx, "dolibarr:tool:get_customer_by_id:cccc"); err != nil {
		t.Errorf("unrelated key removed: %v", err)
	}

	n, _ = s.DeleteByPattern(ctx, "dolibarr:tool:get_customers:*")
	if n != 0 {
		t.Errorf("second DeleteByPattern removed %d, want 0", n)
	}

	if _, err := s.DeleteByPattern(ctx, "["); err == nil {
		t.Error("malformed pattern should fail")
	}
}

func TestMemoryStore_DeleteByPatternSkipsExpiredInCount(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Set(ctx, "ns:op:1", []byte("v"), time.Second)
	_ = s.Set(ctx, "ns:op:2", []byte("v"), time.Hour)
	now = now.Add(2 * time.Second)

	n, _ := s.DeleteByPattern(ctx, "ns:op:*")
	if n != 1 {
		t.Errorf("DeleteByPattern counted %d live keys, want 1", n)
	}
	if s.Len() != 0 {
		t.Errorf("expired matches should still be dropped, Len = %d", s.Len())
	}
}

func TestMemoryStore_Close(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Set(ctx, "k", []byte("v"), time.Minute)

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping before Close = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close = %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping after Close = %v, want ErrClosed", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close = %v, want ErrClosed", err)
	}
	if err := s.Set(ctx, "k", []byte("v"), time.Minute); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after Close = %v, want ErrClosed", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const numGoroutines = 50
	const opsPerGoroutine = 500

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				switch j % 4 {
				case 0:
					_ = s.Set(ctx, "ns:op:k", []byte("v"), time.Minute)
				case 1:
					_, _ = s.Get(ctx, "ns:op:k")
				case 2:
					_ = s.Delete(ctx, "ns:op:k")
				case 3:
					_, _ = s.DeleteByPattern(ctx, "ns:op:*")
				}
			}
		}()
	}
	wg.Wait()
}
