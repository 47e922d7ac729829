// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncEmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liberate_sync_emissions_total",
			Help: "Remote document emissions seen by sync caches, by outcome (applied, stale).",
		},
		[]string{"feature", "outcome"},
	)

	SyncMirrorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liberate_sync_mirror_failures_total",
			Help: "Best-effort local mirror writes that failed.",
		},
		[]string{"feature"},
	)

	SyncActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "liberate_docstore_active_subscriptions",
			Help: "Open remote document subscriptions.",
		},
	)

	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liberate_mutations_total",
			Help: "Document mutations by feature and outcome (ok, unauthenticated, failed).",
		},
		[]string{"feature", "outcome"},
	)

	AnalysisOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liberate_analysis_outcomes_total",
			Help: "Remote analysis fetches by endpoint and classified outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	CompanionReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liberate_companion_replies_total",
			Help: "Companion chat replies by source (model, fallback).",
		},
		[]string{"source"},
	)

	LoginThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "liberate_login_throttled_total",
			Help: "Login attempts refused by the failed-attempt limiter.",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "liberate_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		},
		[]string{"name"},
	)
)
