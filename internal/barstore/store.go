// Package barstore keeps the per-symbol, per-resolution bar cache of one
// chart. Entries are replaced wholesale by successful fetches and never
// partially mutated.
package barstore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"AlphaChart/internal/domain/models"
	"AlphaChart/internal/domain/repository"
	"AlphaChart/pkg/logger"
)

const DefaultTimeout = 10 * time.Second

// Entry is a read-only snapshot of one cached sequence.
type Entry struct {
	Bars      []models.Bar
	FetchedAt time.Time
	// Valid is true once the key was fetched successfully since its
	// symbol was last activated.
	Valid bool
}

type entry struct {
	bars      []models.Bar
	fetchedAt time.Time
	valid     bool
	applied   uint64
	inFlight  int
}

type key struct {
	symbol string
	res    models.Resolution
}

// Store is safe for concurrent use.
type Store struct {
	source    repository.BarSource
	publisher repository.RefreshPublisher
	metrics   repository.Metrics
	log       *logger.Logger
	timeout   time.Duration
	now       func() time.Time

	seq atomic.Uint64

	mu      sync.RWMutex
	active  string
	entries map[key]*entry
}

// New creates a store reading from source.
func New(source repository.BarSource, opts ...Option) *Store {
	s := &Store{
		source:  source,
		metrics: repository.NopMetrics{},
		log:     logger.Nop(),
		timeout: DefaultTimeout,
		now:     time.Now,
		entries: make(map[key]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Active returns the active symbol.
func (s *Store) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Activate makes symbol the active one. When it changes, the symbol's
// cached entries are marked invalid so the caller re-fetches them; the
// bars themselves are retained. Returns true if the symbol changed.
func (s *Store) Activate(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == symbol {
		return false
	}
	s.active = symbol
	for _, res := range models.Resolutions {
		if e, ok := s.entries[key{symbol, res}]; ok {
			e.valid = false
		}
	}
	return true
}

// Deactivate clears the active symbol so that every in-flight fetch is
// discarded on completion.
func (s *Store) Deactivate() {
	s.mu.Lock()
	s.active = ""
	s.mu.Unlock()
}

// Get returns the cached bars for the key, or false when nothing was ever
// fetched for it. The slice must not be modified.
func (s *Store) Get(symbol string, res models.Resolution) ([]models.Bar, bool) {
	e, ok := s.Snapshot(symbol, res)
	if !ok {
		return nil, false
	}
	return e.Bars, true
}

// Snapshot returns the cached entry for the key.
func (s *Store) Snapshot(symbol string, res models.Resolution) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key{symbol, res}]
	if !ok || e.bars == nil {
		return Entry{}, false
	}
	return Entry{Bars: e.bars, FetchedAt: e.fetchedAt, Valid: e.valid}, true
}

// Valid reports whether the key was fetched since its symbol became active.
func (s *Store) Valid(symbol string, res models.Resolution) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key{symbol, res}]
	return ok && e.valid
}

// Loading reports whether a fetch for the key is in flight.
func (s *Store) Loading(symbol string, res models.Resolution) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key{symbol, res}]
	return ok && e.inFlight > 0
}

// Fetch loads bars for the key from the source and, if the result is still
// wanted, replaces the cached sequence with it.
//
// The result is dropped with ErrStaleSymbol when symbol is no longer active
// at completion, and with ErrSuperseded when a fetch issued later for the
// same key has already been applied. Source failures return *FetchError and
// leave the cache untouched.
func (s *Store) Fetch(ctx context.Context, symbol string, res models.Resolution) ([]models.Bar, error) {
	seq := s.seq.Add(1)
	k := key{symbol, res}

	s.mu.Lock()
	s.entryLocked(k).inFlight++
	s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	bars, err := s.source.FetchBars(ctx, symbol, res)
	s.metrics.RecordFetchLatency(res, time.Since(start).Seconds())

	s.mu.Lock()
	e := s.entryLocked(k)
	e.inFlight--
	if s.active != symbol {
		s.mu.Unlock()
		s.metrics.RecordDiscarded("stale_symbol")
		s.log.Debug("discarding fetch for inactive symbol",
			logger.String("symbol", symbol),
			logger.String("resolution", res.String()))
		return nil, ErrStaleSymbol
	}
	if seq <= e.applied {
		s.mu.Unlock()
		s.metrics.RecordDiscarded("superseded")
		return nil, ErrSuperseded
	}
	if err != nil {
		s.mu.Unlock()
		s.metrics.RecordFetch(res, "error")
		s.log.Warn("bar fetch failed",
			logger.String("symbol", symbol),
			logger.String("resolution", res.String()),
			logger.Error(err))
		return nil, &FetchError{Symbol: symbol, Resolution: res, Err: err}
	}

	snapshot := make([]models.Bar, len(bars))
	copy(snapshot, bars)
	fetchedAt := s.now()
	e.bars = snapshot
	e.fetchedAt = fetchedAt
	e.valid = true
	e.applied = seq
	s.mu.Unlock()

	s.metrics.RecordFetch(res, "ok")
	s.metrics.RecordCachedBars(symbol, res, len(snapshot))
	s.publish(ctx, symbol, res, snapshot, fetchedAt)
	return snapshot, nil
}

func (s *Store) entryLocked(k key) *entry {
	e, ok := s.entries[k]
	if !ok {
		e = &entry{}
		s.entries[k] = e
	}
	return e
}

func (s *Store) publish(ctx context.Context, symbol string, res models.Resolution, bars []models.Bar, at time.Time) {
	if s.publisher == nil {
		return
	}
	ev := models.RefreshEvent{
		Symbol:     symbol,
		Resolution: res,
		Bars:       len(bars),
		FetchedAt:  at,
	}
	if len(bars) > 0 {
		ev.LastBar = bars[len(bars)-1].Time
	}
	if err := s.publisher.PublishRefresh(context.WithoutCancel(ctx), ev); err != nil {
		s.metrics.RecordError("publish_refresh")
		s.log.Warn("publish refresh event failed",
			logger.String("symbol", symbol),
			logger.Error(err))
	}
}
