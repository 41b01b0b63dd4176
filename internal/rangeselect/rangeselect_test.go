package rangeselect

import (
	"testing"
	"time"

	"AlphaChart/internal/domain/models"
)

func dailyBars(from time.Time, n int) []models.Bar {
	out := make([]models.Bar, n)
	for i := range out {
		out[i] = models.Bar{Time: from.AddDate(0, 0, i), Close: float64(i)}
	}
	return out
}

func TestCutoffs(t *testing.T) {
	loc := time.FixedZone("ET", -4*3600)
	now := time.Date(2024, 3, 31, 15, 20, 0, 0, loc)
	cases := []struct {
		w    models.DisplayWindow
		want time.Time
		ok   bool
	}{
		{models.OneDay, time.Date(2024, 3, 31, 0, 0, 0, 0, loc), true},
		{models.FiveDay, time.Date(2024, 3, 24, 0, 0, 0, 0, loc), true},
		// AddDate normalises Feb 31 to Mar 2.
		{models.OneMonth, time.Date(2024, 3, 2, 0, 0, 0, 0, loc), true},
		{models.SixMonth, time.Date(2023, 10, 1, 0, 0, 0, 0, loc), true},
		{models.OneYear, time.Date(2023, 3, 31, 0, 0, 0, 0, loc), true},
		{models.YearToDate, time.Date(2024, 1, 1, 0, 0, 0, 0, loc), true},
		{models.FiveYear, time.Time{}, false},
	}
	for _, c := range cases {
		got, ok := Cutoff(c.w, now)
		if ok != c.ok {
			t.Fatalf("%s: ok=%v want %v", c.w, ok, c.ok)
		}
		if ok && !got.Equal(c.want) {
			t.Errorf("%s: cutoff %v want %v", c.w, got, c.want)
		}
	}
}

func TestSelectBoundaryInclusive(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	bars := dailyBars(time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC), 16)
	got := Select(bars, models.FiveDay, now)
	if len(got) == 0 || !got[0].Time.Equal(time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected first bar at cutoff, got %+v", got)
	}
	if len(got) != 8 {
		t.Fatalf("expected 8 bars, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Time.Before(got[i-1].Time) {
			t.Fatalf("order not preserved at %d", i)
		}
	}
}

func TestSelectOneDayKeepsToday(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	bars := []models.Bar{
		{Time: time.Date(2024, 5, 9, 15, 55, 0, 0, time.UTC)},
		{Time: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
		{Time: time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)},
	}
	got := Select(bars, models.OneDay, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 same-day bars, got %d", len(got))
	}
}

func TestSelectFiveYearUnfiltered(t *testing.T) {
	bars := dailyBars(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	got := Select(bars, models.FiveYear, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if len(got) != len(bars) {
		t.Fatalf("expected unfiltered, got %d", len(got))
	}
}

func TestSelectIdempotent(t *testing.T) {
	now := time.Date(2024, 7, 4, 10, 0, 0, 0, time.UTC)
	bars := dailyBars(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 600)
	for _, w := range models.DisplayWindows {
		once := Select(bars, w, now)
		twice := Select(once, w, now)
		if len(once) != len(twice) {
			t.Fatalf("%s: %d then %d", w, len(once), len(twice))
		}
		for i := range once {
			if !once[i].Time.Equal(twice[i].Time) {
				t.Fatalf("%s: mismatch at %d", w, i)
			}
		}
	}
}

func TestResolutionGating(t *testing.T) {
	for _, w := range models.DisplayWindows {
		want := models.EndOfDay
		if w == models.OneDay || w == models.FiveDay {
			want = models.Intraday
		}
		if got := Resolution(w); got != want {
			t.Errorf("%s: %s want %s", w, got, want)
		}
	}
}
