package repository

import (
	"strings"
	"testing"
	"time"

	"AlphaChart/internal/domain/models"
)

func TestBarTable(t *testing.T) {
	cases := []struct {
		db   string
		res  models.Resolution
		want string
	}{
		{"alphachart", models.Intraday, "alphachart.bars_5min"},
		{"alphachart", models.EndOfDay, "alphachart.bars_1day"},
		{"", models.EndOfDay, "default.bars_1day"},
	}
	for _, tc := range cases {
		got, err := BarTable(tc.db, tc.res)
		if err != nil || got != tc.want {
			t.Errorf("BarTable(%q, %s) = %q, %v; want %q", tc.db, tc.res, got, err, tc.want)
		}
	}
	if _, err := BarTable("x", models.Resolution("1h")); err == nil {
		t.Error("expected error for unknown resolution")
	}
}

func TestBarSchemaCoversEveryResolution(t *testing.T) {
	stmts := BarSchema("alphachart")
	if len(stmts) != 1+len(models.Resolutions) {
		t.Fatalf("unexpected statement count %d", len(stmts))
	}
	joined := strings.Join(stmts, "\n")
	for _, table := range []string{"alphachart.bars_5min", "alphachart.bars_1day"} {
		if !strings.Contains(joined, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("missing DDL for %s", table)
		}
	}
}

func TestLatestBarsQueryOrdersNewestFirst(t *testing.T) {
	q := latestBarsQuery("alphachart.bars_5min")
	if !strings.Contains(q, "ORDER BY time DESC") || !strings.Contains(q, "LIMIT ?") {
		t.Fatalf("unexpected query %s", q)
	}
}

func TestReverseBars(t *testing.T) {
	base := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	bars := []models.Bar{
		{Time: base.AddDate(0, 0, 2), Close: 3},
		{Time: base.AddDate(0, 0, 1), Close: 2},
		{Time: base, Close: 1},
	}
	reverseBars(bars)
	for i, want := range []float64{1, 2, 3} {
		if bars[i].Close != want {
			t.Fatalf("bar %d close = %v, want %v", i, bars[i].Close, want)
		}
	}
}
