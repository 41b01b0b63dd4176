package usecase

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"AlphaChart/pkg/logger"
)

// DefaultMaxSessions bounds the registry when no size is configured.
const DefaultMaxSessions = 256

// SessionFactory builds a new session for a chart id. The returned session
// must start with the given market status.
type SessionFactory func(id string, marketOpen bool) *Session

// SessionRegistry holds chart sessions by id. The least recently used
// session is closed when the registry is full.
type SessionRegistry struct {
	mu         sync.Mutex
	sessions   *lru.Cache[string, *Session]
	factory    SessionFactory
	marketOpen bool
	onSize     func(int)
	log        *logger.Logger
}

type RegistryOption func(*SessionRegistry)

// WithSizeHook is called with the session count after every change.
func WithSizeHook(fn func(int)) RegistryOption {
	return func(r *SessionRegistry) { r.onSize = fn }
}

func WithRegistryLogger(l *logger.Logger) RegistryOption {
	return func(r *SessionRegistry) {
		if l != nil {
			r.log = l
		}
	}
}

func NewSessionRegistry(size int, factory SessionFactory, opts ...RegistryOption) *SessionRegistry {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	r := &SessionRegistry{
		factory: factory,
		onSize:  func(int) {},
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	// NewWithEvict only fails on a non-positive size.
	r.sessions, _ = lru.NewWithEvict[string, *Session](size, func(id string, s *Session) {
		r.log.Debug("closing chart session", logger.String("chart", id))
		s.Close()
	})
	return r
}

// Get returns the session for id, creating it if needed.
func (r *SessionRegistry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions.Get(id); ok {
		return s
	}
	s := r.factory(id, r.marketOpen)
	r.sessions.Add(id, s)
	r.onSize(r.sessions.Len())
	return s
}

// Lookup returns an existing session without creating one.
func (r *SessionRegistry) Lookup(id string) (*Session, bool) {
	return r.sessions.Get(id)
}

// Remove closes and forgets the session for id.
func (r *SessionRegistry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ok := r.sessions.Remove(id)
	r.onSize(r.sessions.Len())
	return ok
}

// SetMarketOpen forwards the market status to every session and remembers it
// for sessions created later.
func (r *SessionRegistry) SetMarketOpen(open bool) {
	r.mu.Lock()
	r.marketOpen = open
	sessions := r.sessions.Values()
	r.mu.Unlock()

	for _, s := range sessions {
		s.SetMarketOpen(open)
	}
}

// MarketOpen returns the last status passed to SetMarketOpen.
func (r *SessionRegistry) MarketOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.marketOpen
}

func (r *SessionRegistry) Len() int {
	return r.sessions.Len()
}

// Close closes every session.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions.Purge()
	r.onSize(0)
}
