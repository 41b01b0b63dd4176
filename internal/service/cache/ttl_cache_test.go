package cache

import (
	"testing"
	"time"
)

func TestTTLCacheStale(t *testing.T) {
	now := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	c := NewTTLCache[bool]().WithClock(func() time.Time { return now })
	c.Set("market", true, 30*time.Second)

	if v, ok := c.Get("market"); !ok || !v {
		t.Fatalf("expected fresh hit")
	}

	now = now.Add(45 * time.Second)
	if _, ok := c.Get("market"); ok {
		t.Fatalf("expired value must not be fresh")
	}
	v, stale, ok := c.GetStale("market")
	if !ok || !stale || !v {
		t.Fatalf("expected stale value, got v=%v stale=%v ok=%v", v, stale, ok)
	}
	if age := c.Age("market"); age != 15*time.Second {
		t.Fatalf("age %v", age)
	}
}

func TestTTLCacheNoTTLNeverExpires(t *testing.T) {
	now := time.Now()
	c := NewTTLCache[string]().WithClock(func() time.Time { return now })
	c.Set("k", "v", 0)
	now = now.Add(1000 * time.Hour)
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("expected value without ttl to persist")
	}
	c.Delete("k")
	if _, _, ok := c.GetStale("k"); ok {
		t.Fatalf("deleted key still present")
	}
}
