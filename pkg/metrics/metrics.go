// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// PartyConnectionsActive tracks currently open party channels.
	PartyConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_party_connections_active",
			Help: "Number of open party websocket connections",
		},
	)

	// EventsTotal tracks lifecycle events processed per type and outcome.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_total",
			Help: "Lifecycle events processed",
		},
		[]string{"type", "outcome"},
	)

	// RelaysTotal tracks translated utterances relayed to the other leg.
	RelaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_utterances_relayed_total",
			Help: "Utterances translated and relayed to the peer leg",
		},
		[]string{"party"},
	)

	// TranslationsTotal tracks translation gateway calls by status
	// (ok, skipped, error).
	TranslationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_translations_total",
			Help: "Translation gateway invocations",
		},
		[]string{"status"},
	)

	// TranslationDuration tracks provider translation latency.
	TranslationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_translation_duration_seconds",
			Help:    "Translation provider latency",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"provider"},
	)

	// TranscriptAppendsTotal tracks persisted transcript entries.
	TranscriptAppendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_transcript_appends_total",
			Help: "Transcript entries appended",
		},
	)

	// PushFailuresTotal tracks failed pushes to a party channel.
	PushFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_push_failures_total",
			Help: "Failed pushes to a party channel",
		},
	)

	// DialRequestsTotal tracks outbound dial attempts by outcome.
	DialRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_dial_requests_total",
			Help: "Outbound callee-leg dial attempts",
		},
		[]string{"outcome"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordEvent records a processed lifecycle event.
func RecordEvent(eventType, outcome string) {
	EventsTotal.WithLabelValues(eventType, outcome).Inc()
}
