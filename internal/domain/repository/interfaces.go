package repository

import (
	"context"

	"AlphaChart/internal/domain/models"
)

// BarSource serves raw bars for a symbol, oldest first.
type BarSource interface {
	FetchBars(ctx context.Context, symbol string, res models.Resolution) ([]models.Bar, error)
}

type bypassCacheKey struct{}

// WithBypassCache marks ctx so a BarSource skips any response cache it
// reads through. The fresh result may still be written back.
func WithBypassCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassCacheKey{}, true)
}

// BypassCache reports whether ctx was marked by WithBypassCache.
func BypassCache(ctx context.Context) bool {
	v, _ := ctx.Value(bypassCacheKey{}).(bool)
	return v
}

// MarketStatusSource reports whether the market is currently open.
type MarketStatusSource interface {
	MarketStatus(ctx context.Context) (models.MarketStatus, error)
}

// RefreshPublisher announces cache replacements to downstream consumers.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, ev models.RefreshEvent) error
	Close() error
}

type Metrics interface {
	RecordFetch(res models.Resolution, result string)
	RecordFetchLatency(res models.Resolution, seconds float64)
	RecordDiscarded(reason string)
	RecordSchedulerTick()
	RecordCachedBars(symbol string, res models.Resolution, n int)
	RecordError(kind string)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) RecordFetch(models.Resolution, string)           {}
func (NopMetrics) RecordFetchLatency(models.Resolution, float64)   {}
func (NopMetrics) RecordDiscarded(string)                          {}
func (NopMetrics) RecordSchedulerTick()                            {}
func (NopMetrics) RecordCachedBars(string, models.Resolution, int) {}
func (NopMetrics) RecordError(string)                              {}
