package repository

import (
	"context"
	"time"

	"AlphaChart/internal/domain/models"
	domrepo "AlphaChart/internal/domain/repository"
	"AlphaChart/internal/markethours"
	svccache "AlphaChart/internal/service/cache"
	xhttp "AlphaChart/pkg/http"
	applogger "AlphaChart/pkg/logger"
)

const (
	statusKey        = "market_status"
	defaultStatusTTL = 30 * time.Second

	SourceAPI      = "api"
	SourceStale    = "stale"
	SourceCalendar = "calendar"
)

// MarketStatusAPI reads the open/closed flag from the backend. On failure it
// serves the last known answer, then falls back to the exchange calendar.
type MarketStatusAPI struct {
	client *xhttp.Client
	cache  *svccache.TTLCache[bool]
	cal    *markethours.Calendar
	ttl    time.Duration
	now    func() time.Time
	l      *applogger.Logger
}

type MarketStatusOption func(*MarketStatusAPI)

func WithStatusTTL(ttl time.Duration) MarketStatusOption {
	return func(m *MarketStatusAPI) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithStatusClock(now func() time.Time) MarketStatusOption {
	return func(m *MarketStatusAPI) {
		if now != nil {
			m.now = now
		}
	}
}

func WithStatusLogger(l *applogger.Logger) MarketStatusOption {
	return func(m *MarketStatusAPI) {
		if l != nil {
			m.l = l
		}
	}
}

// NewMarketStatusAPI builds the source. A nil client answers from the
// calendar only.
func NewMarketStatusAPI(client *xhttp.Client, cal *markethours.Calendar, opts ...MarketStatusOption) *MarketStatusAPI {
	if cal == nil {
		cal = markethours.Fallback()
	}
	m := &MarketStatusAPI{
		client: client,
		cal:    cal,
		ttl:    defaultStatusTTL,
		now:    time.Now,
		l:      applogger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cache = svccache.NewTTLCache[bool]().WithClock(m.now)
	return m
}

type marketStatusResponse struct {
	IsMarketOpen *bool `json:"isMarketOpen"`
}

// MarketStatus never fails; the error return is kept for the interface.
func (m *MarketStatusAPI) MarketStatus(ctx context.Context) (models.MarketStatus, error) {
	now := m.now()
	if open, ok := m.cache.Get(statusKey); ok {
		return models.MarketStatus{IsMarketOpen: open, Source: SourceAPI, CheckedAt: now}, nil
	}

	if m.client != nil {
		open, err := m.fetch(ctx)
		if err == nil {
			m.cache.Set(statusKey, open, m.ttl)
			return models.MarketStatus{IsMarketOpen: open, Source: SourceAPI, CheckedAt: now}, nil
		}
		m.l.Warn("market status request failed", applogger.Error(err))

		if open, stale, ok := m.cache.GetStale(statusKey); ok && stale {
			m.l.Debug("serving stale market status",
				applogger.Bool("open", open),
				applogger.Duration("age", m.cache.Age(statusKey)))
			return models.MarketStatus{IsMarketOpen: open, Source: SourceStale, CheckedAt: now}, nil
		}
	}

	return models.MarketStatus{IsMarketOpen: m.cal.IsOpen(now), Source: SourceCalendar, CheckedAt: now}, nil
}

func (m *MarketStatusAPI) fetch(ctx context.Context) (bool, error) {
	var resp marketStatusResponse
	err := m.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    "/market/status",
	}, &resp)
	if err != nil {
		return false, err
	}
	if resp.IsMarketOpen == nil {
		return false, errMissingStatus
	}
	return *resp.IsMarketOpen, nil
}

var _ domrepo.MarketStatusSource = (*MarketStatusAPI)(nil)
