package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"AlphaChart/internal/barstore"
	"AlphaChart/internal/domain/models"
	"AlphaChart/internal/usecase"
)

type stubSource struct {
	mu    sync.Mutex
	bars  []models.Bar
	calls int
}

func (s *stubSource) FetchBars(context.Context, string, models.Resolution) ([]models.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.bars, nil
}

func (s *stubSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubStatus struct {
	st  models.MarketStatus
	err error
}

func (s stubStatus) MarketStatus(context.Context) (models.MarketStatus, error) {
	return s.st, s.err
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func setup(t *testing.T, status stubStatus) (*echo.Echo, *stubSource, *usecase.SessionRegistry) {
	t.Helper()
	now := time.Now()
	src := &stubSource{bars: []models.Bar{
		{Time: now.Add(-10 * time.Minute), Close: 10, Volume: 100},
		{Time: now.Add(-5 * time.Minute), Close: 11, Volume: 300},
	}}
	reg := usecase.NewSessionRegistry(8, func(id string, open bool) *usecase.Session {
		return usecase.NewSession(id, barstore.New(src), usecase.WithMarketOpen(open))
	})
	t.Cleanup(reg.Close)

	e := echo.New()
	NewSeriesEchoHandler(nil, reg, status).RegisterRoutes(e)
	return e, src, reg
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSeriesEndpoint(t *testing.T) {
	e, src, reg := setup(t, stubStatus{})

	rec := do(e, http.MethodGet, "/api/series?chart=main&symbol=AAPL&window=1M", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	var view models.SeriesView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatal(err)
	}
	if view.Symbol != "AAPL" || view.Window != models.OneMonth || view.LookbackPeriod != 10 {
		t.Fatalf("unexpected view %+v", view.Series)
	}

	s, ok := reg.Lookup("main")
	if !ok {
		t.Fatal("session not registered")
	}
	waitUntil(t, "bars applied", func() bool { return len(s.View().Bars) == 2 })
	waitUntil(t, "one fetch per resolution", func() bool { return src.count() == 2 })
}

func TestSeriesEndpointValidation(t *testing.T) {
	e, _, _ := setup(t, stubStatus{})

	for _, target := range []string{
		"/api/series?window=1D",
		"/api/series?symbol=AAPL&window=2W",
		"/api/series?symbol=AA%20PL",
	} {
		if rec := do(e, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", target, rec.Code)
		}
	}
}

func TestRefetchEndpoint(t *testing.T) {
	e, src, reg := setup(t, stubStatus{})

	if rec := do(e, http.MethodPost, "/api/series/refetch", `{"chart":"nope"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown chart: status %d", rec.Code)
	}

	do(e, http.MethodGet, "/api/series?chart=main&symbol=AAPL&window=1M", "")
	s, _ := reg.Lookup("main")
	waitUntil(t, "initial fetches", func() bool { return src.count() == 2 && !s.View().IsLoading })

	if rec := do(e, http.MethodPost, "/api/series/refetch", `{"chart":"main"}`); rec.Code != http.StatusOK {
		t.Fatalf("refetch: status %d", rec.Code)
	}
	waitUntil(t, "refetch", func() bool { return src.count() == 3 })
}

func TestCloseChartEndpoint(t *testing.T) {
	e, _, reg := setup(t, stubStatus{})
	do(e, http.MethodGet, "/api/series?chart=main&symbol=AAPL", "")

	if rec := do(e, http.MethodDelete, "/api/series/main", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}
	if _, ok := reg.Lookup("main"); ok {
		t.Fatal("session still registered")
	}
	if rec := do(e, http.MethodDelete, "/api/series/main", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d", rec.Code)
	}
}

func TestMarketStatusEndpoint(t *testing.T) {
	e, _, _ := setup(t, stubStatus{st: models.MarketStatus{IsMarketOpen: true, Source: "api"}})
	rec := do(e, http.MethodGet, "/api/market/status", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"isMarketOpen":true`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body)
	}

	e, _, _ = setup(t, stubStatus{err: errors.New("down")})
	if rec := do(e, http.MethodGet, "/api/market/status", ""); rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestStreamPushesViews(t *testing.T) {
	e, _, _ := setup(t, stubStatus{})
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/series/stream?chart=live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"symbol": "MSFT", "window": "1M"}); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var view models.SeriesView
		if err := conn.ReadJSON(&view); err != nil {
			t.Fatalf("read: %v", err)
		}
		if view.Symbol != "MSFT" {
			t.Fatalf("unexpected symbol %q", view.Symbol)
		}
		if len(view.Bars) == 2 {
			return
		}
	}
}

func TestStreamEndsWhenSessionCloses(t *testing.T) {
	e, _, reg := setup(t, stubStatus{})
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/series/stream?chart=gone"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"symbol": "MSFT", "window": "1M"}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first models.SeriesView
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}

	if !reg.Remove("gone") {
		t.Fatal("session should exist")
	}
	for {
		var view models.SeriesView
		err := conn.ReadJSON(&view)
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
			t.Fatalf("expected going-away close, got %v", err)
		}
		return
	}
}

func TestStreamRejectsBadCommand(t *testing.T) {
	e, _, _ := setup(t, stubStatus{})
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/series/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"window": "1D"}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatal(err)
	}
	if env.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 envelope, got %+v", env)
	}
}

func TestRefetchIsRateLimitedPerChart(t *testing.T) {
	e, _, _ := setup(t, stubStatus{})
	do(e, http.MethodGet, "/api/series?chart=main&symbol=AAPL&window=1M", "")
	do(e, http.MethodGet, "/api/series?chart=side&symbol=AAPL&window=1M", "")

	for i := 0; i < refetchBurst; i++ {
		if rec := do(e, http.MethodPost, "/api/series/refetch", `{"chart":"main"}`); rec.Code != http.StatusOK {
			t.Fatalf("refetch %d: status %d", i, rec.Code)
		}
	}
	if rec := do(e, http.MethodPost, "/api/series/refetch", `{"chart":"main"}`); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/series/refetch", `{"chart":"side"}`); rec.Code != http.StatusOK {
		t.Fatalf("other chart should not be limited, got %d", rec.Code)
	}
}
