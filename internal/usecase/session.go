package usecase

import (
	"context"
	"sync"
	"time"

	"AlphaChart/internal/barstore"
	"AlphaChart/internal/domain/models"
	"AlphaChart/internal/domain/repository"
	"AlphaChart/internal/scheduler"
	"AlphaChart/pkg/logger"
)

// EventKind enumerates everything that can make a session re-fetch.
type EventKind int

const (
	SymbolChanged EventKind = iota
	WindowChanged
	MarketOpenChanged
	TimerFired
	ManualRefetch
	FetchCompleted
)

func (k EventKind) String() string {
	switch k {
	case SymbolChanged:
		return "symbol_changed"
	case WindowChanged:
		return "window_changed"
	case MarketOpenChanged:
		return "market_open_changed"
	case TimerFired:
		return "timer_fired"
	case ManualRefetch:
		return "manual_refetch"
	case FetchCompleted:
		return "fetch_completed"
	default:
		return "unknown"
	}
}

type event struct {
	kind       EventKind
	symbol     string
	window     models.DisplayWindow
	marketOpen bool
	res        models.Resolution
	err        error
}

type fetchKey struct {
	symbol string
	res    models.Resolution
}

// Session is the state of one chart instance: the displayed symbol and
// window, its bar store, and its refresh scheduler. Events are handled one
// at a time; fetches run on their own goroutines and report back as
// FetchCompleted events.
type Session struct {
	id      string
	store   *barstore.Store
	sched   *scheduler.RefreshScheduler
	clock   scheduler.Clock
	log     *logger.Logger
	metrics repository.Metrics

	loc *time.Location

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}

	mu         sync.Mutex
	closed     bool
	symbol     string
	window     models.DisplayWindow
	marketOpen bool
	attempted  map[models.Resolution]bool
	errs       map[models.Resolution]string
	pending    map[fetchKey]int
	listeners  map[int]func(models.SeriesView)
	nextID     int
}

// SessionOption configures Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	clock      scheduler.Clock
	interval   time.Duration
	log        *logger.Logger
	metrics    repository.Metrics
	marketOpen bool
	loc        *time.Location
}

func WithSessionClock(c scheduler.Clock) SessionOption {
	return func(c2 *sessionConfig) { c2.clock = c }
}

// WithRefreshInterval overrides the intraday refresh period.
func WithRefreshInterval(d time.Duration) SessionOption {
	return func(c *sessionConfig) { c.interval = d }
}

func WithSessionLogger(l *logger.Logger) SessionOption {
	return func(c *sessionConfig) { c.log = l }
}

func WithSessionMetrics(m repository.Metrics) SessionOption {
	return func(c *sessionConfig) { c.metrics = m }
}

// WithSessionLocation sets the market zone window cutoffs are computed in.
// Without it the clock's zone is used.
func WithSessionLocation(loc *time.Location) SessionOption {
	return func(c *sessionConfig) { c.loc = loc }
}

// WithMarketOpen sets the market status known at creation.
func WithMarketOpen(open bool) SessionOption {
	return func(c *sessionConfig) { c.marketOpen = open }
}

// NewSession creates a session over store. The session owns the store's
// active symbol from here on.
func NewSession(id string, store *barstore.Store, opts ...SessionOption) *Session {
	cfg := &sessionConfig{
		clock:    scheduler.SystemClock{},
		interval: scheduler.DefaultInterval,
		log:      logger.Nop(),
		metrics:  repository.NopMetrics{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		store:      store,
		clock:      cfg.clock,
		log:        cfg.log.With(logger.String("session", id)),
		metrics:    cfg.metrics,
		loc:        cfg.loc,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		marketOpen: cfg.marketOpen,
		attempted:  make(map[models.Resolution]bool),
		errs:       make(map[models.Resolution]string),
		pending:    make(map[fetchKey]int),
		listeners:  make(map[int]func(models.SeriesView)),
	}
	// The tick callback only hands off; the scheduler waits for it on Stop.
	s.sched = scheduler.New(func() {
		go s.dispatch(event{kind: TimerFired})
	},
		scheduler.WithClock(cfg.clock),
		scheduler.WithInterval(cfg.interval),
		scheduler.WithMetrics(cfg.metrics),
		scheduler.WithLogger(s.log))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// GetSeries makes (symbol, window) the displayed selection and returns the
// current view of it. A new symbol triggers an eager fetch of both
// resolutions; the first access to a resolution fetches only that one.
func (s *Session) GetSeries(symbol string, window models.DisplayWindow) models.SeriesView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.SeriesView{Error: "session closed"}
	}
	if symbol != s.symbol {
		s.handleLocked(event{kind: SymbolChanged, symbol: symbol, window: window})
	} else if window != s.window {
		s.handleLocked(event{kind: WindowChanged, window: window})
	}
	s.ensureLocked(window.Resolution())
	return s.viewLocked()
}

// View returns the current view without changing the selection.
func (s *Session) View() models.SeriesView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.SeriesView{Error: "session closed"}
	}
	return s.viewLocked()
}

// Refetch fetches the resolution of the current window now, whatever the
// scheduler state. The source is asked to skip its response cache.
func (s *Session) Refetch() {
	s.dispatch(event{kind: ManualRefetch})
}

// SetMarketOpen feeds the market status into the scheduler.
func (s *Session) SetMarketOpen(open bool) {
	s.dispatch(event{kind: MarketOpenChanged, marketOpen: open})
}

// Subscribe registers fn to receive the view after every applied fetch or
// fetch failure. The returned func removes it.
func (s *Session) Subscribe(fn func(models.SeriesView)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close tears the session down. Once it returns, no timer callback fires and
// no in-flight fetch result is applied.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.store.Deactivate()
	s.listeners = map[int]func(models.SeriesView){}
	close(s.done)
	s.mu.Unlock()

	s.sched.Stop()
	s.cancel()
	s.wg.Wait()
	s.log.Debug("session closed")
}

// Done is closed when the session is torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// SchedulerState exposes the scheduler state for status endpoints.
func (s *Session) SchedulerState() scheduler.State {
	return s.sched.State()
}

func (s *Session) dispatch(ev event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	view, notify := s.handleLocked(ev)
	var fns []func(models.SeriesView)
	if notify {
		fns = make([]func(models.SeriesView), 0, len(s.listeners))
		for _, fn := range s.listeners {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(view)
	}
}

// handleLocked applies one event. It reports whether listeners should be
// told about the resulting view.
func (s *Session) handleLocked(ev event) (models.SeriesView, bool) {
	switch ev.kind {
	case SymbolChanged:
		s.sched.Reset()
		s.symbol = ev.symbol
		s.window = ev.window
		s.store.Activate(ev.symbol)
		s.attempted = make(map[models.Resolution]bool)
		s.errs = make(map[models.Resolution]string)
		for _, res := range models.Resolutions {
			s.fetchLocked(res, false)
		}
		s.evaluateLocked()

	case WindowChanged:
		s.window = ev.window
		s.evaluateLocked()

	case MarketOpenChanged:
		if s.marketOpen == ev.marketOpen {
			return models.SeriesView{}, false
		}
		s.marketOpen = ev.marketOpen
		s.evaluateLocked()

	case TimerFired:
		if s.symbol != "" {
			s.fetchLocked(models.Intraday, false)
		}

	case ManualRefetch:
		if s.symbol != "" && s.window.IsValid() {
			s.fetchLocked(s.window.Resolution(), true)
		}

	case FetchCompleted:
		k := fetchKey{ev.symbol, ev.res}
		if s.pending[k]--; s.pending[k] <= 0 {
			delete(s.pending, k)
		}
		if ev.symbol != s.symbol || barstore.IsDiscarded(ev.err) {
			return models.SeriesView{}, false
		}
		if ev.err != nil {
			s.errs[ev.res] = ev.err.Error()
		} else {
			delete(s.errs, ev.res)
		}
		return s.viewLocked(), true
	}
	return models.SeriesView{}, false
}

// ensureLocked fetches res once per activation when nothing is cached for it.
func (s *Session) ensureLocked(res models.Resolution) {
	if s.symbol == "" || s.attempted[res] {
		return
	}
	if s.store.Valid(s.symbol, res) {
		return
	}
	s.fetchLocked(res, false)
}

func (s *Session) evaluateLocked() {
	s.sched.Evaluate(s.marketOpen, s.window.IsIntraday())
}

func (s *Session) fetchLocked(res models.Resolution, bypassCache bool) {
	symbol := s.symbol
	s.attempted[res] = true
	s.pending[fetchKey{symbol, res}]++
	ctx := s.ctx
	if bypassCache {
		ctx = repository.WithBypassCache(ctx)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, err := s.store.Fetch(ctx, symbol, res)
		s.dispatch(event{kind: FetchCompleted, symbol: symbol, res: res, err: err})
	}()
}

func (s *Session) viewLocked() models.SeriesView {
	view := models.SeriesView{MarketOpen: s.marketOpen}
	if s.symbol == "" || !s.window.IsValid() {
		view.Symbol = s.symbol
		view.Window = s.window
		return view
	}
	res := s.window.Resolution()
	entry, _ := s.store.Snapshot(s.symbol, res)
	now := s.clock.Now()
	if s.loc != nil {
		now = now.In(s.loc)
	}
	view.Series = *Compose(s.symbol, s.window, entry.Bars, now)
	view.IsLoading = s.pending[fetchKey{s.symbol, res}] > 0
	view.Error = s.errs[res]
	view.LastUpdated = entry.FetchedAt
	return view
}
