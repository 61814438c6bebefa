// Package metrics exposes Prometheus metrics for refresh cycles, providers
// and the FX layer. Scrape them at /metrics when the HTTP server runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Refresh cycle
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "networth_refresh_total",
			Help: "Refresh cycles by outcome (complete, partial, failed, rejected, cancelled)",
		},
		[]string{"outcome"},
	)

	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "networth_refresh_duration_seconds",
			Help:    "Wall time of a refresh cycle",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	SnapshotTotalValue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "networth_snapshot_total_value",
			Help: "Total value of the last committed snapshot in the reporting currency",
		},
	)

	SnapshotMissing = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "networth_snapshot_missing_holdings",
			Help: "Holdings zeroed or valued from stale data in the last committed snapshot",
		},
	)

	// Providers
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "networth_provider_requests_total",
			Help: "Calls to external quote and FX sources by result",
		},
		[]string{"source", "result"},
	)

	QuotesMissing = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "networth_quotes_missing_total",
			Help: "Symbols a quote source could not resolve",
		},
		[]string{"source"},
	)

	// FX layer
	FxResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "networth_fx_resolutions_total",
			Help: "FX lookups by how they were resolved (primary, fallback, cached, identity, unavailable)",
		},
		[]string{"kind"},
	)

	SinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "networth_sink_failures_total",
			Help: "Snapshot mirror publish failures",
		},
		[]string{"sink"},
	)
)
