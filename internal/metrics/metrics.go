// Package metrics provides Prometheus metrics for the gateway.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"avatar-gateway/internal/config"
	"avatar-gateway/internal/model"
)

// Default histogram buckets for API latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Outcome labels for GatewayResults.
const (
	OutcomeSuccess       = "success"
	OutcomeUpstreamError = "upstream_error"
	OutcomeTransport     = "transport_error"
	OutcomeRejected      = "rejected"
	OutcomeConfig        = "config_error"
)

// Metrics holds all Prometheus metric collectors for the gateway.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec

	ActionsTotal *prometheus.CounterVec

	pathPrefixes []string
}

// routePrefixes are the fixed routes that get their own path label.
var routePrefixes = []string{"/api/heygen", "/healthz", "/gateway/status"}

// New creates a Metrics instance with a custom registry and all collectors
// registered. When the metrics endpoint is enabled its path gets its own label.
func New(cfg *config.Config) *Metrics {
	prefixes := append([]string(nil), routePrefixes...)
	if cfg.Metrics.Enabled && cfg.Metrics.Path != "" {
		prefixes = append(prefixes, cfg.Metrics.Path)
	}

	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry:     reg,
		pathPrefixes: prefixes,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avatar_gateway_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "path_prefix"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "avatar_gateway_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "path_prefix"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "avatar_gateway_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "avatar_gateway_upstream_request_duration_seconds",
			Help:    "HeyGen call latency in seconds, including body read.",
			Buckets: defaultBuckets,
		}, []string{"action"}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avatar_gateway_upstream_responses_total",
			Help: "Total HeyGen responses by action and status code.",
		}, []string{"action", "status_code"}),

		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avatar_gateway_actions_total",
			Help: "Gateway results by action and outcome.",
		}, []string{"action", "outcome"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.ActionsTotal,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// knownActions bounds the action label; callers can send any string.
var knownActions = func() map[string]bool {
	known := make(map[string]bool, len(model.Actions))
	for _, a := range model.Actions {
		known[string(a)] = true
	}
	return known
}()

// NormalizeAction returns a bounded action label.
func NormalizeAction(action string) string {
	if knownActions[action] {
		return action
	}
	return "unknown"
}

// NormalizePath returns a bounded path label for Prometheus metrics.
func (m *Metrics) NormalizePath(path string) string {
	for _, prefix := range m.pathPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?") {
			return prefix
		}
	}
	return "other"
}
