package barstore

import (
	"time"

	"AlphaChart/internal/domain/repository"
	"AlphaChart/pkg/logger"
)

// Option configures Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m repository.Metrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithPublisher announces every applied fetch.
func WithPublisher(p repository.RefreshPublisher) Option {
	return func(s *Store) {
		s.publisher = p
	}
}

// WithTimeout bounds each fetch. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// WithClock overrides time.Now for fetch timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}
