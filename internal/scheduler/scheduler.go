// Package scheduler decides when a chart re-fetches its intraday bars.
package scheduler

import (
	"sync"
	"time"

	"AlphaChart/internal/domain/repository"
	"AlphaChart/pkg/logger"
)

// DefaultInterval is the intraday refresh period.
const DefaultInterval = 5 * time.Minute

// State of a RefreshScheduler.
type State int

const (
	Idle State = iota
	Scheduled
)

func (s State) String() string {
	if s == Scheduled {
		return "scheduled"
	}
	return "idle"
}

// RefreshScheduler owns at most one ticker. The ticker exists only while
// the market is open and the active window is intraday.
//
// onTick runs on the scheduler's goroutine. It must not block and must not
// call back into the scheduler.
type RefreshScheduler struct {
	clock    Clock
	interval time.Duration
	onTick   func()
	metrics  repository.Metrics
	log      *logger.Logger

	mu      sync.Mutex
	state   State
	ticker  Ticker
	done    chan struct{}
	exited  chan struct{}
	stopped bool
}

// Option configures RefreshScheduler.
type Option func(*RefreshScheduler)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *RefreshScheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(s *RefreshScheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithMetrics(m repository.Metrics) Option {
	return func(s *RefreshScheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *RefreshScheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates an idle scheduler.
func New(onTick func(), opts ...Option) *RefreshScheduler {
	s := &RefreshScheduler{
		clock:    SystemClock{},
		interval: DefaultInterval,
		onTick:   onTick,
		metrics:  repository.NopMetrics{},
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *RefreshScheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Evaluate enters Scheduled when marketOpen and intradayWindow are both
// true and returns to Idle otherwise. An existing ticker is kept when the
// state does not change.
func (s *RefreshScheduler) Evaluate(marketOpen, intradayWindow bool) State {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return Idle
	}
	want := marketOpen && intradayWindow
	if want && s.state == Scheduled {
		s.mu.Unlock()
		return Scheduled
	}
	exited := s.cancelLocked()
	if want {
		s.startLocked()
	}
	state := s.state
	s.mu.Unlock()

	wait(exited)
	s.log.Debug("refresh scheduler evaluated",
		logger.Bool("market_open", marketOpen),
		logger.Bool("intraday", intradayWindow),
		logger.String("state", state.String()))
	return state
}

// Reset cancels any ticker and returns to Idle.
func (s *RefreshScheduler) Reset() {
	s.mu.Lock()
	exited := s.cancelLocked()
	s.mu.Unlock()
	wait(exited)
}

// Stop cancels the ticker for good. Once Stop returns, onTick is not
// running and will not be called again.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	exited := s.cancelLocked()
	s.mu.Unlock()
	wait(exited)
}

func (s *RefreshScheduler) startLocked() {
	t := s.clock.NewTicker(s.interval)
	done := make(chan struct{})
	exited := make(chan struct{})
	s.ticker, s.done, s.exited = t, done, exited
	s.state = Scheduled
	go s.loop(t, done, exited)
}

// cancelLocked releases the ticker and returns a channel closed when its
// goroutine has exited, or nil when there was none.
func (s *RefreshScheduler) cancelLocked() chan struct{} {
	s.state = Idle
	if s.ticker == nil {
		return nil
	}
	s.ticker.Stop()
	close(s.done)
	exited := s.exited
	s.ticker, s.done, s.exited = nil, nil, nil
	return exited
}

func (s *RefreshScheduler) loop(t Ticker, done, exited chan struct{}) {
	defer close(exited)
	for {
		select {
		case <-done:
			return
		case <-t.C():
			// done wins when both are ready.
			select {
			case <-done:
				return
			default:
			}
			s.metrics.RecordSchedulerTick()
			if s.onTick != nil {
				s.onTick()
			}
		}
	}
}

func wait(ch chan struct{}) {
	if ch != nil {
		<-ch
	}
}
