package metrics

import (
	"AlphaChart/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchesTotal   *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	discardedTotal *prometheus.CounterVec
	ticksTotal     prometheus.Counter
	cachedBars     *prometheus.GaugeVec
	errorsTotal    *prometheus.CounterVec
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphachart_bar_fetches_total",
				Help: "Bar fetches by resolution and result",
			},
			[]string{"resolution", "result"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alphachart_bar_fetch_duration_seconds",
				Help:    "Duration of bar fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resolution"},
		),
		discardedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphachart_fetch_results_discarded_total",
				Help: "Completed fetches dropped before reaching the cache",
			},
			[]string{"reason"},
		),
		ticksTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "alphachart_scheduler_ticks_total",
				Help: "Intraday refresh timer fires",
			},
		),
		cachedBars: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "alphachart_cached_bars",
				Help: "Bars currently cached per symbol and resolution",
			},
			[]string{"symbol", "resolution"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphachart_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordFetch counts a fetch outcome ("ok", "error", ...).
func (r *Recorder) RecordFetch(res models.Resolution, result string) {
	r.fetchesTotal.WithLabelValues(res.String(), result).Inc()
}

// RecordFetchLatency records fetch latency in seconds.
func (r *Recorder) RecordFetchLatency(res models.Resolution, seconds float64) {
	r.fetchLatency.WithLabelValues(res.String()).Observe(seconds)
}

// RecordDiscarded counts a fetch result that was not applied.
func (r *Recorder) RecordDiscarded(reason string) {
	r.discardedTotal.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordSchedulerTick() {
	r.ticksTotal.Inc()
}

// RecordCachedBars sets the cached bar count for a key.
func (r *Recorder) RecordCachedBars(symbol string, res models.Resolution, n int) {
	r.cachedBars.WithLabelValues(symbol, res.String()).Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
