package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryItem stores an encoded value with expiration.
type MemoryItem struct {
	Value    []byte
	ExpireAt time.Time
}

// IsExpired checks if item has expired at now.
func (m *MemoryItem) IsExpired(now time.Time) bool {
	return !now.Before(m.ExpireAt)
}

// MemoryCache implements Service using an in-process LRU. Expired items are
// dropped lazily on access.
type MemoryCache struct {
	mutex      sync.Mutex
	items      *lru.Cache[string, *MemoryItem]
	defaultTTL time.Duration
	now        func() time.Time
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:    1000,
		DefaultTTL: 24 * time.Hour,
		Now:        time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1000
	}

	// lru.New only fails on a non-positive size.
	items, _ := lru.New[string, *MemoryItem](cfg.MaxSize)
	return &MemoryCache{
		items:      items,
		defaultTTL: cfg.DefaultTTL,
		now:        cfg.Now,
	}
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return fmt.Errorf("memory cache set %s: %w", key, err)
	}
	if expiration <= 0 {
		expiration = mc.defaultTTL
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	mc.items.Add(key, &MemoryItem{Value: data, ExpireAt: mc.now().Add(expiration)})
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mutex.Lock()
	item, ok := mc.items.Get(key)
	if ok && item.IsExpired(mc.now()) {
		mc.items.Remove(key)
		ok = false
	}
	mc.mutex.Unlock()
	if !ok {
		return ErrCacheMiss
	}
	return decode(item.Value, dest)
}

// setRaw stores already-encoded bytes, used by LayeredCache promotion.
func (mc *MemoryCache) setRaw(key string, data []byte, expiration time.Duration) {
	if expiration <= 0 {
		expiration = mc.defaultTTL
	}
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	mc.items.Add(key, &MemoryItem{Value: data, ExpireAt: mc.now().Add(expiration)})
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		mc.items.Remove(key)
	}
	return nil
}

// DeleteByPattern removes keys matching a glob pattern ("chart:AAPL:*").
func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range mc.items.Keys() {
		if ok, _ := path.Match(pattern, key); ok {
			mc.items.Remove(key)
		}
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := mc.now()
	for _, key := range keys {
		if item, ok := mc.items.Peek(key); ok && !item.IsExpired(now) {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of stored items, expired ones included.
func (mc *MemoryCache) Len() int {
	return mc.items.Len()
}

func (mc *MemoryCache) Close() error {
	mc.items.Purge()
	return nil
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(value)
	}
}

func decode(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = string(data)
		return nil
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	default:
		return json.Unmarshal(data, dest)
	}
}
