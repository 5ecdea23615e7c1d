package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "voidfm:"

// JSONStore stores JSON documents under a common prefix. It backs the
// catalog cache.
type JSONStore struct {
	client *redis.Client
}

// NewJSONStore uses the global client when client is nil.
func NewJSONStore(client *redis.Client) *JSONStore {
	if client == nil {
		client = RedisClient
	}
	return &JSONStore{client: client}
}

// GetJSON decodes key into dst; a missing key reports false.
func (s *JSONStore) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	if s.client == nil {
		return false, fmt.Errorf("Redis client not initialized")
	}
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores value with ttl (0 means no expiry).
func (s *JSONStore) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return s.client.Set(ctx, keyPrefix+key, data, ttl).Err()
}

// Delete removes keys.
func (s *JSONStore) Delete(ctx context.Context, keys ...string) error {
	if s.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	return s.client.Del(ctx, full...).Err()
}
