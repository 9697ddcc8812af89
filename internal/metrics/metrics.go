// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all feed metrics.
type Metrics struct {
	// Feed store
	Inserted   *prometheus.CounterVec
	Duplicates *prometheus.CounterVec
	Stale      prometheus.Counter

	// Transport
	Malformed   prometheus.Counter
	Reconnects  prometheus.Counter
	Connections prometheus.Gauge

	// Collaborators
	HistoryFailures    prometheus.Counter
	DurabilityFailures prometheus.Counter
	HistoryLatency     prometheus.Histogram

	// Sessions
	Sessions prometheus.Gauge
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Inserted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "notifications_inserted_total",
			Help:      "Notifications added to a feed, by origin",
		}, []string{"origin"}),
		Duplicates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "notifications_duplicate_total",
			Help:      "Notifications dropped because the feed already held them, by origin",
		}, []string{"origin"}),
		Stale: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_stale_total",
			Help:      "Queued events dropped because their session had ended",
		}),
		Malformed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "messages_malformed_total",
			Help:      "Inbound messages that could not be parsed",
		}),
		Reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "reconnect_attempts_total",
			Help:      "Reconnect attempts after a lost connection",
		}),
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "connections",
			Help:      "Feeds currently connected to the pub/sub service",
		}),
		HistoryFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "load_failures_total",
			Help:      "Failed history loads",
		}),
		DurabilityFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "delete_failures_total",
			Help:      "Remote deletes that failed after a local dismissal",
		}),
		HistoryLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "load_duration_seconds",
			Help:      "Time spent loading notification history",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		Sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "sessions",
			Help:      "Live feed sessions held by the gateway",
		}),
	}
}

// NewNop returns metrics registered on a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry(), "nop")
}
