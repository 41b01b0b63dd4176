package barstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"AlphaChart/internal/domain/models"
)

type reply struct {
	bars []models.Bar
	err  error
}

// gatedSource blocks each FetchBars call until the test releases it.
type gatedSource struct {
	mu      sync.Mutex
	calls   map[string]chan reply
	started chan string
}

func newGatedSource() *gatedSource {
	return &gatedSource{calls: make(map[string]chan reply), started: make(chan string, 16)}
}

func (g *gatedSource) gate(symbol string, res models.Resolution) chan reply {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := symbol + "/" + res.String()
	ch, ok := g.calls[id]
	if !ok {
		ch = make(chan reply, 4)
		g.calls[id] = ch
	}
	return ch
}

func (g *gatedSource) FetchBars(ctx context.Context, symbol string, res models.Resolution) ([]models.Bar, error) {
	ch := g.gate(symbol, res)
	g.started <- symbol + "/" + res.String()
	select {
	case r := <-ch:
		return r.bars, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type staticSource struct {
	bars []models.Bar
	err  error
}

func (s *staticSource) FetchBars(context.Context, string, models.Resolution) ([]models.Bar, error) {
	return s.bars, s.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.RefreshEvent
}

func (p *recordingPublisher) PublishRefresh(_ context.Context, ev models.RefreshEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func bars(closes ...float64) []models.Bar {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]models.Bar, len(closes))
	for i, c := range closes {
		out[i] = models.Bar{Time: base.AddDate(0, 0, i), Close: c}
	}
	return out
}

func TestFetchReplacesNotAppends(t *testing.T) {
	src := &staticSource{bars: bars(1, 2, 3)}
	s := New(src)
	s.Activate("AAPL")

	if _, err := s.Fetch(context.Background(), "AAPL", models.EndOfDay); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	src.bars = bars(7, 8)
	if _, err := s.Fetch(context.Background(), "AAPL", models.EndOfDay); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	got, ok := s.Get("AAPL", models.EndOfDay)
	if !ok || len(got) != 2 || got[0].Close != 7 || got[1].Close != 8 {
		t.Fatalf("expected exactly the second payload, got %+v", got)
	}
}

func TestFetchErrorKeepsPreviousBars(t *testing.T) {
	src := &staticSource{bars: bars(1, 2, 3)}
	s := New(src)
	s.Activate("AAPL")
	if _, err := s.Fetch(context.Background(), "AAPL", models.Intraday); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	boom := errors.New("503")
	src.err = boom
	_, err := s.Fetch(context.Background(), "AAPL", models.Intraday)
	var fe *FetchError
	if !errors.As(err, &fe) || !errors.Is(err, boom) {
		t.Fatalf("expected FetchError wrapping cause, got %v", err)
	}
	if fe.Symbol != "AAPL" || fe.Resolution != models.Intraday {
		t.Fatalf("unexpected error key %+v", fe)
	}
	got, _ := s.Get("AAPL", models.Intraday)
	if len(got) != 3 {
		t.Fatalf("cache should keep last good data, got %d bars", len(got))
	}
}

func TestActivateInvalidatesButRetains(t *testing.T) {
	s := New(&staticSource{bars: bars(1, 2)})
	s.Activate("A")
	if _, err := s.Fetch(context.Background(), "A", models.EndOfDay); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !s.Valid("A", models.EndOfDay) {
		t.Fatalf("expected valid after fetch")
	}
	if !s.Activate("B") {
		t.Fatalf("expected change")
	}
	if s.Activate("B") {
		t.Fatalf("re-activating the same symbol is not a change")
	}
	s.Activate("A")
	if s.Valid("A", models.EndOfDay) {
		t.Fatalf("re-activated symbol must be re-fetched")
	}
	if _, ok := s.Get("A", models.EndOfDay); !ok {
		t.Fatalf("bars for A should be retained")
	}
}

func TestLateResultForPreviousSymbolDiscarded(t *testing.T) {
	src := newGatedSource()
	s := New(src)
	s.Activate("A")

	errc := make(chan error, 1)
	go func() {
		_, err := s.Fetch(context.Background(), "A", models.Intraday)
		errc <- err
	}()
	<-src.started
	if !s.Loading("A", models.Intraday) {
		t.Fatalf("expected in-flight fetch to be visible")
	}

	s.Activate("B")
	src.gate("A", models.Intraday) <- reply{bars: bars(1, 2, 3)}
	if err := <-errc; !errors.Is(err, ErrStaleSymbol) {
		t.Fatalf("expected ErrStaleSymbol, got %v", err)
	}
	if _, ok := s.Get("B", models.Intraday); ok {
		t.Fatalf("B must not receive A's bars")
	}
	if _, ok := s.Get("A", models.Intraday); ok {
		t.Fatalf("stale result must not be applied to A either")
	}
}

func TestSlowOlderFetchCannotOverwriteNewer(t *testing.T) {
	src := newGatedSource()
	s := New(src)
	s.Activate("A")
	gate := src.gate("A", models.Intraday)

	older := make(chan error, 1)
	go func() {
		_, err := s.Fetch(context.Background(), "A", models.Intraday)
		older <- err
	}()
	<-src.started

	newer := make(chan error, 1)
	go func() {
		_, err := s.Fetch(context.Background(), "A", models.Intraday)
		newer <- err
	}()
	<-src.started

	// Both calls wait on the same gate. Deliver the first reply, then
	// check which one was applied before delivering the second.
	gate <- reply{bars: bars(9, 9)}
	var first error
	select {
	case first = <-older:
		// Older completed first with its payload; newer still pending.
		if first != nil {
			t.Fatalf("older fetch: %v", first)
		}
		gate <- reply{bars: bars(5)}
		if err := <-newer; err != nil {
			t.Fatalf("newer fetch: %v", err)
		}
		got, _ := s.Get("A", models.Intraday)
		if len(got) != 1 || got[0].Close != 5 {
			t.Fatalf("newest payload should win, got %+v", got)
		}
	case first = <-newer:
		if first != nil {
			t.Fatalf("newer fetch: %v", first)
		}
		gate <- reply{bars: bars(1, 1, 1)}
		if err := <-older; !errors.Is(err, ErrSuperseded) {
			t.Fatalf("expected ErrSuperseded, got %v", err)
		}
		got, _ := s.Get("A", models.Intraday)
		if len(got) != 2 {
			t.Fatalf("older result overwrote newer: %+v", got)
		}
	}
}

func TestDeactivateDiscardsInFlight(t *testing.T) {
	src := newGatedSource()
	s := New(src)
	s.Activate("A")
	errc := make(chan error, 1)
	go func() {
		_, err := s.Fetch(context.Background(), "A", models.EndOfDay)
		errc <- err
	}()
	<-src.started
	s.Deactivate()
	src.gate("A", models.EndOfDay) <- reply{bars: bars(1)}
	if err := <-errc; !IsDiscarded(err) {
		t.Fatalf("expected discarded result, got %v", err)
	}
}

func TestTimeoutBecomesFetchError(t *testing.T) {
	src := newGatedSource()
	s := New(src, WithTimeout(20*time.Millisecond))
	s.Activate("A")
	_, err := s.Fetch(context.Background(), "A", models.Intraday)
	var fe *FetchError
	if !errors.As(err, &fe) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout FetchError, got %v", err)
	}
}

func TestPublishesRefreshEvent(t *testing.T) {
	pub := &recordingPublisher{}
	at := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	s := New(&staticSource{bars: bars(1, 2, 3)}, WithPublisher(pub), WithClock(func() time.Time { return at }))
	s.Activate("MSFT")
	if _, err := s.Fetch(context.Background(), "MSFT", models.EndOfDay); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Symbol != "MSFT" || ev.Bars != 3 || !ev.FetchedAt.Equal(at) || !ev.LastBar.Equal(bars(1, 2, 3)[2].Time) {
		t.Fatalf("unexpected event %+v", ev)
	}
}
