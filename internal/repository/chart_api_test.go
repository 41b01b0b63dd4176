package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"AlphaChart/internal/domain/models"
	domrepo "AlphaChart/internal/domain/repository"
	pkgcache "AlphaChart/pkg/cache"
	xhttp "AlphaChart/pkg/http"
)

func chartServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.URL.Path != "/chart" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChartAPIReversesAndParses(t *testing.T) {
	body := `[
		{"date":"2024-03-12 10:10:00","open":"3","high":3.5,"low":2.5,"close":3,"volume":300},
		{"date":"2024-03-12 10:05:00","open":2,"high":null,"low":1.5,"close":"2","volume":"200"},
		{"date":"2024-03-12 10:00:00","open":1,"high":1.5,"low":0.5,"close":1,"volume":"abc"}
	]`
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	api := NewChartAPI(xhttp.NewClient(xhttp.WithBaseURL(srv.URL)))
	bars, err := api.FetchBars(context.Background(), "AAPL", models.Intraday)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if query != "limit=500&symbol=AAPL&timeframe=5min" {
		t.Errorf("unexpected query %q", query)
	}
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	for i, want := range []float64{1, 2, 3} {
		if bars[i].Close != want {
			t.Errorf("bar %d close = %v, want %v", i, bars[i].Close, want)
		}
	}
	if !bars[0].Time.Before(bars[2].Time) {
		t.Error("bars must be oldest first")
	}
	if bars[1].High != 0 {
		t.Errorf("null high should read as 0, got %v", bars[1].High)
	}
	if bars[0].Volume != 0 {
		t.Errorf("non-numeric volume should read as 0, got %v", bars[0].Volume)
	}
	if bars[1].Volume != 200 {
		t.Errorf("string volume = %v, want 200", bars[1].Volume)
	}
}

func TestChartAPIEndOfDayLimit(t *testing.T) {
	var limit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	api := NewChartAPI(xhttp.NewClient(xhttp.WithBaseURL(srv.URL)))
	if _, err := api.FetchBars(context.Background(), "MSFT", models.EndOfDay); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if limit != "2000" {
		t.Fatalf("limit = %s, want 2000", limit)
	}
}

func TestChartAPIDropsUnparsableDates(t *testing.T) {
	srv := chartServer(t, `[
		{"date":"2024-03-13","close":2},
		{"date":"not a date","close":1.5},
		{"date":"2024-03-11","close":1}
	]`, nil)

	api := NewChartAPI(xhttp.NewClient(xhttp.WithBaseURL(srv.URL)))
	bars, err := api.FetchBars(context.Background(), "AAPL", models.EndOfDay)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 2 || bars[0].Close != 1 || bars[1].Close != 2 {
		t.Fatalf("unexpected bars %+v", bars)
	}
}

func TestChartAPIRejectsNullRecentClose(t *testing.T) {
	hits := int32(0)
	srv := chartServer(t, `[
		{"date":"2024-03-15","close":5},
		{"date":"2024-03-14","close":4},
		{"date":"2024-03-13","close":null},
		{"date":"2024-03-12","close":2},
		{"date":"2024-03-11","close":1}
	]`, &hits)

	mem := pkgcache.NewMemoryCache()
	api := NewChartAPI(xhttp.NewClient(xhttp.WithBaseURL(srv.URL)), WithPayloadCache(mem))
	_, err := api.FetchBars(context.Background(), "AAPL", models.EndOfDay)
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
	if mem.Len() != 0 {
		t.Fatal("bad payload must not be cached")
	}
	if _, err := api.FetchBars(context.Background(), "AAPL", models.EndOfDay); err == nil {
		t.Fatal("second fetch should hit the backend again and fail")
	}
	if hits != 2 {
		t.Fatalf("expected 2 backend calls, got %d", hits)
	}
}

func TestChartAPIAllowsOldNullClose(t *testing.T) {
	srv := chartServer(t, `[
		{"date":"2024-03-18","close":6},
		{"date":"2024-03-15","close":5},
		{"date":"2024-03-14","close":4},
		{"date":"2024-03-13","close":3},
		{"date":"2024-03-12","close":2},
		{"date":"2024-03-11","close":null}
	]`, nil)

	api := NewChartAPI(xhttp.NewClient(xhttp.WithBaseURL(srv.URL)))
	bars, err := api.FetchBars(context.Background(), "AAPL", models.EndOfDay)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(bars) != 6 || bars[0].Close != 0 {
		t.Fatalf("old null close should read as 0, got %+v", bars[0])
	}
}

func TestChartAPIPayloadCacheSharesResponse(t *testing.T) {
	hits := int32(0)
	srv := chartServer(t, `[{"date":"2024-03-12","close":10,"volume":5}]`, &hits)

	mem := pkgcache.NewMemoryCache()
	api := NewChartAPI(xhttp.NewClient(xhttp.WithBaseURL(srv.URL)),
		WithPayloadCache(mem),
		WithPayloadTTL(models.EndOfDay, time.Minute))

	for i := 0; i < 3; i++ {
		bars, err := api.FetchBars(context.Background(), "AAPL", models.EndOfDay)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if len(bars) != 1 || bars[0].Close != 10 || bars[0].Volume != 5 {
			t.Fatalf("fetch %d: unexpected bars %+v", i, bars)
		}
	}
	if hits != 1 {
		t.Fatalf("expected one backend call, got %d", hits)
	}

	fresh := domrepo.WithBypassCache(context.Background())
	if _, err := api.FetchBars(fresh, "AAPL", models.EndOfDay); err != nil {
		t.Fatalf("fetch bypassing cache: %v", err)
	}
	if hits != 2 {
		t.Fatalf("bypass should force a backend call, got %d", hits)
	}
	if _, err := api.FetchBars(context.Background(), "AAPL", models.EndOfDay); err != nil {
		t.Fatalf("fetch after bypass: %v", err)
	}
	if hits != 2 {
		t.Fatalf("bypassed result should be cached again, got %d", hits)
	}
}

func TestChartAPIBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	api := NewChartAPI(xhttp.NewClient(xhttp.WithBaseURL(srv.URL)))
	_, err := api.FetchBars(context.Background(), "AAPL", models.Intraday)
	var se *xhttp.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status error, got %v", err)
	}
}
