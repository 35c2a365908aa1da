package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "resqlink"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard backend.
type Metrics struct {
	// Live synchronisation.
	ChangeEvents    *prometheus.CounterVec   // labels: table, type
	RefreshErrors   *prometheus.CounterVec   // labels: topic
	RefreshDuration *prometheus.HistogramVec // labels: topic
	SyncerRunning   prometheus.Gauge

	// Stream fan-out.
	StreamSubscribers prometheus.Gauge
	StreamDropped     prometheus.Counter

	// Upstream calls.
	UpstreamRequests *prometheus.CounterVec   // labels: upstream={supabase,openweather,tiles,webhook}, outcome={success,error}
	UpstreamDuration *prometheus.HistogramVec // labels: upstream

	// Weather cache.
	WeatherCache *prometheus.CounterVec // labels: result={hit,miss}

	FallbackServed *prometheus.CounterVec // labels: source={snapshot,default}
	AlertsSent     *prometheus.CounterVec // labels: target, outcome
	ArchiveWrites  *prometheus.CounterVec // labels: outcome
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ChangeEvents,
		m.RefreshErrors,
		m.RefreshDuration,
		m.SyncerRunning,
		m.StreamSubscribers,
		m.StreamDropped,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.WeatherCache,
		m.FallbackServed,
		m.AlertsSent,
		m.ArchiveWrites,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ChangeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_total",
			Help:      "Change events received from the feed by table and type.",
		}, []string{"table", "type"}),
		RefreshErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_errors_total",
			Help:      "Panel refreshes that failed by topic.",
		}, []string{"topic"}),
		RefreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a panel refetch triggered by a change event.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"topic"}),
		SyncerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "syncer_running",
			Help:      "1 when the live syncer is active, 0 when shut down.",
		}),
		StreamSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      "Currently connected stream subscribers.",
		}),
		StreamDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_dropped_total",
			Help:      "Updates dropped because a subscriber was not keeping up.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests to third-party services by upstream and outcome.",
		}, []string{"upstream", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Third-party request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"upstream"}),
		WeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
		FallbackServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_served_total",
			Help:      "Responses served from a snapshot or built-in defaults after an upstream failure.",
		}, []string{"source"}),
		AlertsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alert trigger attempts by target and outcome.",
		}, []string{"target", "outcome"}),
		ArchiveWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_writes_total",
			Help:      "Sensor readings written to the time-series archive by outcome.",
		}, []string{"outcome"}),
	}
}
