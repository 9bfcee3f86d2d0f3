// Package cache implements the cache-aside layer in front of the durable
// store. Values are JSON payloads; every key is namespaced by a configured
// instance prefix so deployments can share one Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fraud-detection-service/internal/client"
	"fraud-detection-service/internal/util"
)

// KV is the minimal key-value surface the store needs. *client.RedisClient
// satisfies it; tests use an in-memory implementation.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

type Store struct {
	kv       KV
	instance string
}

func NewStore(kv KV, instanceName string) *Store {
	return &Store{kv: kv, instance: instanceName}
}

// Get returns the raw payload for key, with found=false on a clean miss.
// Any other error means the cache is unavailable; callers are expected to
// fall back to the durable store.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	payload, err := s.kv.Get(ctx, s.instance+key)
	if err != nil {
		if errors.Is(err, client.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return payload, true, nil
}

// Set serializes value as JSON and stores it under key with the given TTL.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, s.instance+key, string(payload), ttl); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Remove deletes a single key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.kv.Del(ctx, s.instance+key); err != nil {
		return fmt.Errorf("cache remove %s: %w", key, err)
	}
	return nil
}

// ClearByPrefix deletes every key under the instance namespace matching the
// given prefix. Used for explicit invalidation after out-of-band corrections.
// Failures are logged rather than surfaced: invalidation is best effort and
// stale entries age out within one TTL anyway.
func (s *Store) ClearByPrefix(ctx context.Context, prefix string) {
	pattern := s.instance + prefix + "*"

	keys, err := s.kv.Scan(ctx, pattern)
	if err != nil {
		util.Error("failed to scan cache keys for invalidation",
			zap.String("pattern", pattern),
			zap.Error(err))
		return
	}
	if len(keys) == 0 {
		util.Debug("no cache keys to clear", zap.String("pattern", pattern))
		return
	}

	if err := s.kv.Del(ctx, keys...); err != nil {
		util.Error("failed to delete cache keys",
			zap.String("pattern", pattern),
			zap.Int("key_count", len(keys)),
			zap.Error(err))
		return
	}

	util.Info("cleared cache keys",
		zap.String("pattern", pattern),
		zap.Int("key_count", len(keys)))
}

// GetJSON fetches key and decodes its JSON payload into T.
func GetJSON[T any](ctx context.Context, s *Store, key string) (T, bool, error) {
	var value T

	payload, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return value, false, err
	}

	if err := json.Unmarshal([]byte(payload), &value); err != nil {
		return value, false, fmt.Errorf("cache unmarshal %s: %w", key, err)
	}
	return value, true, nil
}
