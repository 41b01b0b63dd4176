package markethours

import (
	"testing"
	"time"
)

func nyTime(t *testing.T, c *Calendar, s string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", s, c.Location())
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return ts
}

func TestFallbackHours(t *testing.T) {
	c := Fallback()
	if !c.IsFallback() {
		t.Fatal("expected fallback calendar")
	}
	cases := []struct {
		at   string
		open bool
	}{
		{"2024-03-12 09:29", false},
		{"2024-03-12 09:30", true},
		{"2024-03-12 12:00", true},
		{"2024-03-12 15:59", true},
		{"2024-03-12 16:00", false},
		{"2024-03-16 12:00", false}, // Saturday
		{"2024-03-17 12:00", false}, // Sunday
	}
	for _, tc := range cases {
		if got := c.IsOpen(nyTime(t, c, tc.at)); got != tc.open {
			t.Errorf("IsOpen(%s) = %v, want %v", tc.at, got, tc.open)
		}
	}
}

func TestFallbackConvertsZone(t *testing.T) {
	c := Fallback()
	// 15:00 UTC on a March weekday is 11:00 in New York.
	at := time.Date(2024, 3, 12, 15, 0, 0, 0, time.UTC)
	if !c.IsOpen(at) {
		t.Fatal("expected open when converted to exchange time")
	}
}

func TestExchangeCalendarWeekend(t *testing.T) {
	c := New("")
	sat := nyTime(t, c, "2024-03-16 12:00")
	if c.IsTradingDay(sat) || c.IsOpen(sat) {
		t.Fatal("weekend must be closed")
	}
	if !c.IsTradingDay(nyTime(t, c, "2024-03-12 12:00")) {
		t.Fatal("regular Tuesday should be a trading day")
	}
}
