package scheduler

import (
	"sync"
	"time"
)

// Ticker is the subset of *time.Ticker the scheduler needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// SystemClock is backed by the time package.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct{ t *time.Ticker }

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }

// ManualClock only moves when Advance is called. Tickers fire for every
// interval boundary crossed, dropping ticks the reader has not consumed.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

// NewManualClock starts at now.
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualClock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("scheduler: non-positive ticker interval")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTicker{clock: m, every: d, next: m.now.Add(d), c: make(chan time.Time, 1)}
	m.tickers = append(m.tickers, t)
	return t
}

// Active returns the number of tickers not yet stopped.
func (m *ManualClock) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickers)
}

// Advance moves the clock forward by d and fires due tickers.
func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target := m.now.Add(d)
	for {
		var due *manualTicker
		for _, t := range m.tickers {
			if !t.next.After(target) && (due == nil || t.next.Before(due.next)) {
				due = t
			}
		}
		if due == nil {
			break
		}
		m.now = due.next
		select {
		case due.c <- due.next:
		default:
		}
		due.next = due.next.Add(due.every)
	}
	m.now = target
}

func (m *ManualClock) remove(t *manualTicker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, x := range m.tickers {
		if x == t {
			m.tickers = append(m.tickers[:i], m.tickers[i+1:]...)
			return
		}
	}
}

type manualTicker struct {
	clock *ManualClock
	every time.Duration
	next  time.Time
	c     chan time.Time
	once  sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.once.Do(func() { t.clock.remove(t) })
}
