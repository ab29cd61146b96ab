// Package redis provides Redis-based adapters for the storefront.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KVStore is a Redis-backed ports.KVStore. Multi-key writes run inside
// MULTI/EXEC so readers observe either the old or the new record set.
type KVStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// DefaultPrefix keeps every session key in one cluster hash slot.
const DefaultPrefix = "{storefront}:"

// Options configures a KVStore.
type Options struct {
	// Prefix is prepended to every key. Defaults to DefaultPrefix. Under
	// Redis Cluster it must carry a hash tag so multi-key commands stay
	// on a single slot.
	Prefix string
	// TTL expires written keys. Zero keeps them until deleted.
	TTL time.Duration
}

// NewKVStore creates a Redis-backed KV store.
func NewKVStore(client redis.UniversalClient, opts Options) *KVStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &KVStore{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (s *KVStore) SetMany(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, s.prefix+k, v, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *KVStore) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			full = append(full, s.prefix+k)
		}
	}
	if len(full) == 0 {
		return nil
	}
	// DEL with several keys is atomic while they share a slot.
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
