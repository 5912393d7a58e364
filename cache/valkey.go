package cache

import (
	"context"
	"fmt"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"
)

// ValkeyStore is a Store backed by valkey-go.
type ValkeyStore struct {
	client      valkeylib.Client
	closeClient bool
}

// NewValkeyStore wraps an existing client. closeClient makes Close release it.
func NewValkeyStore(client valkeylib.Client, closeClient bool) (*ValkeyStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &ValkeyStore{client: client, closeClient: closeClient}, nil
}

// DialValkey creates a client for addr. valkey-go connects eagerly, so an
// unreachable server is reported here.
func DialValkey(addr, password string, db int) (*ValkeyStore, error) {
	opts := valkeylib.ClientOption{
		InitAddress:  []string{addr},
		SelectDB:     db,
		DisableCache: true,
	}
	if password != "" {
		opts.Password = password
	}
	client, err := valkeylib.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: valkey connect: %w", err)
	}
	return &ValkeyStore{client: client, closeClient: true}, nil
}

// Get returns the value for key, or ErrNotFound.
func (s *ValkeyStore) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.client.B().Get().Key(key).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkeylib.IsValkeyNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cache: valkey get: %w", err)
	}
	return data, nil
}

// Set stores value with SET EX. TTL <= 0 stores nothing.
func (s *ValkeyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	cmd := s.client.B().Set().
		Key(key).
		Value(string(value)).
		Ex(ttl).
		Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("cache: valkey set: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *ValkeyStore) Delete(ctx context.Context, key string) error {
	cmd := s.client.B().Del().Key(key).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("cache: valkey del: %w", err)
	}
	return nil
}

// DeleteByPattern walks the keyspace with SCAN MATCH and deletes each batch.
// Keys are deleted one command each; valkey-go rejects multi-key commands
// whose keys hash to different slots.
func (s *ValkeyStore) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	var cursor uint64
	deleted := 0
	for {
		cmd := s.client.B().Scan().Cursor(cursor).Match(pattern).Count(scanBatchSize).Build()
		entry, err := s.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return deleted, fmt.Errorf("cache: valkey scan: %w", err)
		}
		if len(entry.Elements) > 0 {
			cmds := make(valkeylib.Commands, 0, len(entry.Elements))
			for _, key := range entry.Elements {
				cmds = append(cmds, s.client.B().Del().Key(key).Build())
			}
			for _, res := range s.client.DoMulti(ctx, cmds...) {
				n, err := res.AsInt64()
				if err != nil {
					return deleted, fmt.Errorf("cache: valkey del: %w", err)
				}
				deleted += int(n)
			}
		}
		cursor = entry.Cursor
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// Ping issues PING.
func (s *ValkeyStore) Ping(ctx context.Context) error {
	return s.client.Do(ctx, s.client.B().Ping().Build()).Error()
}

// Close releases the client when this store owns it.
func (s *ValkeyStore) Close() error {
	if s.closeClient {
		s.client.Close()
	}
	return nil
}

var _ Store = (*ValkeyStore)(nil)
