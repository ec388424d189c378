// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	CandidatesSubmitted *prometheus.CounterVec
	DecodeMisses        prometheus.Counter
	SourceErrors        *prometheus.CounterVec

	// Dispatch metrics
	AlertsSent        *prometheus.CounterVec
	AlertFailures     prometheus.Counter
	DuplicatesDropped *prometheus.CounterVec
	BelowThreshold    prometheus.Counter
	UnpricedDropped   prometheus.Counter

	// Market-data metrics
	ProviderFailures *prometheus.CounterVec
	VenueHandoffs    prometheus.Counter

	// Streaming metrics
	WSReconnects    prometheus.Counter
	WSSubscriptions prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trade_alerts"
	}

	return &Metrics{
		CandidatesSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "candidates_submitted_total",
			Help:      "Total number of trade candidates submitted by source",
		}, []string{"source"}),
		DecodeMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "decode_misses_total",
			Help:      "Total number of transactions that decoded to no trade",
		}),
		SourceErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "source_errors_total",
			Help:      "Total number of source adapter errors by source",
		}, []string{"source"}),

		AlertsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "alerts_sent_total",
			Help:      "Total number of alerts dispatched by direction",
		}, []string{"direction"}),
		AlertFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "alert_failures_total",
			Help:      "Total number of alert delivery failures",
		}),
		DuplicatesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duplicates_dropped_total",
			Help:      "Total number of duplicate candidates dropped by source",
		}, []string{"source"}),
		BelowThreshold: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "below_threshold_total",
			Help:      "Total number of candidates below the whale threshold",
		}),
		UnpricedDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "unpriced_dropped_total",
			Help:      "Total number of candidates dropped with no resolvable price",
		}),

		ProviderFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "provider_failures_total",
			Help:      "Total number of market-data provider failures by provider",
		}, []string{"provider"}),
		VenueHandoffs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "venue_handoffs_total",
			Help:      "Total number of pre-listing to pool handoffs",
		}),

		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "streaming",
			Name:      "reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),
		WSSubscriptions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "streaming",
			Name:      "subscriptions",
			Help:      "Current number of active log subscriptions",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCandidate increments the submitted-candidates counter for a source.
func RecordCandidate(source string) {
	DefaultMetrics.CandidatesSubmitted.WithLabelValues(source).Inc()
}

// RecordAlertSent increments the sent-alerts counter.
func RecordAlertSent(direction string) {
	DefaultMetrics.AlertsSent.WithLabelValues(direction).Inc()
}

// RecordDuplicate increments the dropped-duplicates counter for a source.
func RecordDuplicate(source string) {
	DefaultMetrics.DuplicatesDropped.WithLabelValues(source).Inc()
}

// RecordProviderFailure increments the provider-failures counter.
func RecordProviderFailure(provider string) {
	DefaultMetrics.ProviderFailures.WithLabelValues(provider).Inc()
}

// RecordHandoff increments the venue-handoffs counter.
func RecordHandoff() {
	DefaultMetrics.VenueHandoffs.Inc()
}

// RecordWSReconnect increments the reconnects counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}
