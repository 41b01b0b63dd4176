package ratelimit

import (
	"testing"
	"time"
)

func TestBurstThenRefill(t *testing.T) {
	now := time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC)
	l := New(3, 0.1).WithClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if !l.Allow("chart") {
			t.Fatalf("call %d should be allowed", i)
		}
	}
	if l.Allow("chart") {
		t.Fatal("bucket should be empty")
	}
	if !l.Allow("other") {
		t.Fatal("keys must not share a bucket")
	}

	now = now.Add(10 * time.Second)
	if !l.Allow("chart") {
		t.Fatal("one token should have refilled")
	}
	if l.Allow("chart") {
		t.Fatal("only one token should have refilled")
	}

	l.Forget("chart")
	if !l.Allow("chart") {
		t.Fatal("forgotten key starts full")
	}
}
