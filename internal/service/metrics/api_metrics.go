package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    SeriesAPILatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "alphachart",
            Subsystem: "series_api",
            Name:      "latency_seconds",
            Help:      "Latency of series API endpoints",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"endpoint"},
    )

    SeriesAPIErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "alphachart",
            Subsystem: "series_api",
            Name:      "errors_total",
            Help:      "Errors by series API endpoint",
        },
        []string{"endpoint"},
    )

    ActiveSessions = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "alphachart",
            Subsystem: "series_api",
            Name:      "active_sessions",
            Help:      "Chart sessions held by the registry",
        },
    )

    StreamClients = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "alphachart",
            Subsystem: "series_api",
            Name:      "stream_clients",
            Help:      "Connected websocket stream clients",
        },
    )
)

func Register() {
    once.Do(func() {
        prometheus.MustRegister(SeriesAPILatency, SeriesAPIErrors, ActiveSessions, StreamClients)
    })
}
