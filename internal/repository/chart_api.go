package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"AlphaChart/internal/domain/models"
	domrepo "AlphaChart/internal/domain/repository"
	pkgcache "AlphaChart/pkg/cache"
	xhttp "AlphaChart/pkg/http"
	applogger "AlphaChart/pkg/logger"
	"AlphaChart/pkg/util"
)

// nullCheckDepth is how many of the most recent bars must carry a close.
const nullCheckDepth = 5

var (
	// ErrBadPayload is returned when a chart payload has null closes among
	// its most recent bars. Such payloads are neither cached nor applied.
	ErrBadPayload = errors.New("chart payload has null close in most recent bars")

	errMissingStatus = errors.New("market status response missing isMarketOpen")
)

// flexFloat accepts numbers, numeric strings and null. Anything that is not
// a finite number decodes as missing.
type flexFloat struct {
	v  float64
	ok bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = flexFloat{}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if v := util.ParseFloatDefault(s, math.NaN()); !math.IsNaN(v) {
			*f = flexFloat{v: v, ok: true}
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	*f = flexFloat{v: v, ok: true}
	return nil
}

func (f flexFloat) MarshalJSON() ([]byte, error) {
	if !f.ok {
		return []byte("null"), nil
	}
	return json.Marshal(f.v)
}

// rawBar is one element of the /chart response.
type rawBar struct {
	Date   string    `json:"date"`
	Open   flexFloat `json:"open"`
	High   flexFloat `json:"high"`
	Low    flexFloat `json:"low"`
	Close  flexFloat `json:"close"`
	Volume flexFloat `json:"volume"`
}

// ChartAPI fetches bars from the chart REST backend. Raw payloads are kept
// in an optional cache so several charts on one symbol share a response.
type ChartAPI struct {
	client *xhttp.Client
	cache  pkgcache.Service
	limits map[models.Resolution]int
	ttls   map[models.Resolution]time.Duration
	loc    *time.Location
	l      *applogger.Logger
}

// ChartAPIOption configures ChartAPI.
type ChartAPIOption func(*ChartAPI)

// WithPayloadCache enables response caching.
func WithPayloadCache(c pkgcache.Service) ChartAPIOption {
	return func(a *ChartAPI) { a.cache = c }
}

// WithLimit overrides the bar limit requested for res.
func WithLimit(res models.Resolution, n int) ChartAPIOption {
	return func(a *ChartAPI) {
		if n > 0 {
			a.limits[res] = n
		}
	}
}

// WithPayloadTTL overrides how long a raw payload for res is cached.
func WithPayloadTTL(res models.Resolution, ttl time.Duration) ChartAPIOption {
	return func(a *ChartAPI) {
		if ttl > 0 {
			a.ttls[res] = ttl
		}
	}
}

// WithLocation sets the zone used for zone-less bar dates.
func WithLocation(loc *time.Location) ChartAPIOption {
	return func(a *ChartAPI) {
		if loc != nil {
			a.loc = loc
		}
	}
}

func NewChartAPI(client *xhttp.Client, opts ...ChartAPIOption) *ChartAPI {
	a := &ChartAPI{
		client: client,
		limits: map[models.Resolution]int{
			models.Intraday: domrepo.DefaultLimit(models.Intraday),
			models.EndOfDay: domrepo.DefaultLimit(models.EndOfDay),
		},
		ttls: map[models.Resolution]time.Duration{
			models.Intraday: 4 * time.Minute,
			models.EndOfDay: time.Hour,
		},
		loc: time.UTC,
		l:   applogger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetLogger injects a structured logger.
func (a *ChartAPI) SetLogger(l *applogger.Logger) {
	if l != nil {
		a.l = l
	}
}

// FetchBars returns bars for symbol at res, oldest first.
func (a *ChartAPI) FetchBars(ctx context.Context, symbol string, res models.Resolution) ([]models.Bar, error) {
	if !res.IsValid() {
		return nil, fmt.Errorf("unsupported resolution %q", res)
	}
	key := pkgcache.GenerateKeyWithParams("chart", symbol, res, a.limits[res])

	if a.cache != nil && !domrepo.BypassCache(ctx) {
		cached, err := pkgcache.GetTyped[[]rawBar](ctx, a.cache, key)
		if err == nil {
			return a.toBars(symbol, cached), nil
		} else if !errors.Is(err, pkgcache.ErrCacheMiss) {
			a.l.Warn("chart payload cache read failed", applogger.String("key", key), applogger.Error(err))
		}
	}

	var raw []rawBar
	err := a.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    "/chart",
		QueryParams: map[string][]string{
			"timeframe": {res.String()},
			"limit":     {strconv.Itoa(a.limits[res])},
			"symbol":    {symbol},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("chart api %s %s: %w", symbol, res, err)
	}
	if hasNullClose(raw) {
		return nil, fmt.Errorf("chart api %s %s: %w", symbol, res, ErrBadPayload)
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, raw, a.ttls[res]); err != nil {
			a.l.Warn("chart payload cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return a.toBars(symbol, raw), nil
}

// hasNullClose inspects the most recent bars, which come first in the payload.
func hasNullClose(raw []rawBar) bool {
	n := nullCheckDepth
	if len(raw) < n {
		n = len(raw)
	}
	for _, b := range raw[:n] {
		if !b.Close.ok {
			return true
		}
	}
	return false
}

// toBars reverses the newest-first payload and converts each row. Missing
// numeric fields become 0; rows with unparsable dates are dropped.
func (a *ChartAPI) toBars(symbol string, raw []rawBar) []models.Bar {
	out := make([]models.Bar, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		r := raw[i]
		ts, ok := util.ParseTimeIn(r.Date, a.loc)
		if !ok {
			a.l.Debug("dropping bar with unparsable date",
				applogger.String("symbol", symbol),
				applogger.String("date", r.Date))
			continue
		}
		out = append(out, models.Bar{
			Time:   ts,
			Open:   r.Open.v,
			High:   r.High.v,
			Low:    r.Low.v,
			Close:  r.Close.v,
			Volume: r.Volume.v,
		})
	}
	return out
}

var _ domrepo.BarSource = (*ChartAPI)(nil)
