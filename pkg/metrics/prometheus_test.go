package metrics

import (
	"testing"

	"AlphaChart/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordFetch(models.Intraday, "ok")
	r.RecordFetch(models.Intraday, "ok")
	r.RecordFetch(models.EndOfDay, "error")
	r.RecordDiscarded("stale_symbol")
	r.RecordSchedulerTick()
	r.RecordCachedBars("AAPL", models.Intraday, 78)

	if got := testutil.ToFloat64(r.fetchesTotal.WithLabelValues("5min", "ok")); got != 2 {
		t.Fatalf("intraday ok fetches = %v", got)
	}
	if got := testutil.ToFloat64(r.fetchesTotal.WithLabelValues("1day", "error")); got != 1 {
		t.Fatalf("eod error fetches = %v", got)
	}
	if got := testutil.ToFloat64(r.discardedTotal.WithLabelValues("stale_symbol")); got != 1 {
		t.Fatalf("discarded = %v", got)
	}
	if got := testutil.ToFloat64(r.ticksTotal); got != 1 {
		t.Fatalf("ticks = %v", got)
	}
	if got := testutil.ToFloat64(r.cachedBars.WithLabelValues("AAPL", "5min")); got != 78 {
		t.Fatalf("cached bars = %v", got)
	}
}
