package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects counters for the gateway operations and the artifact
// pipeline. A single instance is shared by the client components and, when
// the reference server runs in-process, exposed at /metrics.
type Metrics struct {
	registry *prometheus.Registry

	gatewayRequests *prometheus.CounterVec
	renderDuration  prometheus.Histogram
	artifactUploads *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		gatewayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_gateway_requests_total",
				Help: "Gateway requests by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		renderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "portal_artifact_render_seconds",
				Help:    "Time spent rendering profile artifacts",
				Buckets: prometheus.DefBuckets,
			},
		),
		artifactUploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_artifact_uploads_total",
				Help: "Artifact upload attempts by outcome",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.gatewayRequests,
		m.renderDuration,
		m.artifactUploads,
	)

	return m
}

// Registry exposes the underlying registry for HTTP scraping.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) GatewayRequest(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.gatewayRequests.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) ObserveRender(seconds float64) {
	m.renderDuration.Observe(seconds)
}

func (m *Metrics) ArtifactUpload(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.artifactUploads.WithLabelValues(status).Inc()
}
