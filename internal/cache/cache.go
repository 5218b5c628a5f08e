// Package cache keeps short-lived copies of data fetched from the job site.
// It only ever holds data that can be fetched again; losing it is harmless.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Store is a byte cache with per entry expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key builds a namespaced cache key from parts.
func Key(parts ...string) string {
	return "finn-ranker:" + strings.Join(parts, ":")
}

// GetJSON decodes a cached JSON value into target. A corrupt entry counts as a miss.
func GetJSON(ctx context.Context, store Store, key string, target any) (bool, error) {
	data, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, target); err != nil {
		_ = store.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

// SetJSON encodes value as JSON and stores it.
func SetJSON(ctx context.Context, store Store, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	return store.Set(ctx, key, data, ttl)
}
