package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency. Shared across all handlers.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "routeguard",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// RouteDecisionsTotal counts routing decisions by resolved tier and whether
// the decision was served from cache.
var RouteDecisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "routeguard",
		Subsystem: "router",
		Name:      "decisions_total",
		Help:      "Total number of routing decisions by tier and cache status.",
	},
	[]string{"tier", "cached"},
)

// RouteFallbacksTotal counts times the router returned the degraded-mode
// safe-default decision because orchestration itself failed.
var RouteFallbacksTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "routeguard",
		Subsystem: "router",
		Name:      "fallbacks_total",
		Help:      "Total number of degraded-mode safe-default route decisions.",
	},
)

// ClassifierFallbacksTotal counts times a classifier fell through to its
// rule-based/heuristic path instead of its primary SLM backend.
var ClassifierFallbacksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "routeguard",
		Subsystem: "classifier",
		Name:      "fallbacks_total",
		Help:      "Total number of classifier fallbacks by classifier name.",
	},
	[]string{"classifier"},
)

// RouteDecisionDuration tracks the wall-clock time of the whole /route
// orchestration (cache lookup + classification + decision).
var RouteDecisionDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "routeguard",
		Subsystem: "router",
		Name:      "decision_duration_seconds",
		Help:      "Duration of the full routing decision, including cache lookup.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	},
)

// ABACDenialsTotal counts ABAC policy denials by role and action.
var ABACDenialsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "routeguard",
		Subsystem: "abac",
		Name:      "denials_total",
		Help:      "Total number of ABAC policy denials by role and action.",
	},
	[]string{"role", "action"},
)

// TokensRevokedTotal counts successful logout/revocation operations.
var TokensRevokedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "routeguard",
		Subsystem: "token",
		Name:      "revoked_total",
		Help:      "Total number of tokens revoked via logout.",
	},
)

// All returns all routeguard-specific metrics for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		RouteDecisionsTotal,
		RouteFallbacksTotal,
		ClassifierFallbacksTotal,
		RouteDecisionDuration,
		ABACDenialsTotal,
		TokensRevokedTotal,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process collectors,
// the shared HTTP request-duration metric, and any additional service-specific
// collectors passed as arguments.
func NewMetricsRegistry(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
	)
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return reg
}
