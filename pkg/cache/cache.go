package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface. Values are stored as JSON so
// every implementation can decode into a typed destination.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Close() error
}

// GetTyped retrieves key and decodes it into a T.
func GetTyped[T any](ctx context.Context, c Service, key string) (T, error) {
	var v T
	if err := c.Get(ctx, key, &v); err != nil {
		return v, err
	}
	return v, nil
}
