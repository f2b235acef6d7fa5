// metrics.go — Prometheus metrics for the replay engine.
//
// Grounded on 99souls-ariadne's engine/telemetry/metrics.PrometheusProvider:
// a dedicated registry plus promhttp.HandlerFor, rather than the default
// global registry, so the metrics endpoint is self-contained and testable
// without package-level registration races.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric the engine exports. It is pure
// observability: nothing in the pipeline, orchestrator, or gateway
// branches on a Registry value.
type Registry struct {
	reg *prometheus.Registry

	PipelineDuration *prometheus.HistogramVec
	SessionsTotal    *prometheus.CounterVec
	GatewayConns     prometheus.Gauge
	FramesSent       prometheus.Counter
}

// New constructs a Registry with all metrics registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		PipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "replay_pipeline_duration_seconds",
			Help:    "Wall-clock time spent running the telemetry pipeline for a session.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"session"}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replay_sessions_total",
			Help: "Sessions that reached a terminal loading state, by state.",
		}, []string{"state"}),
		GatewayConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "replay_gateway_connections",
			Help: "Currently open streaming gateway connections.",
		}),
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replay_frames_sent_total",
			Help: "Binary frame messages sent to gateway clients.",
		}),
	}

	reg.MustRegister(r.PipelineDuration, r.SessionsTotal, r.GatewayConns, r.FramesSent)
	return r
}

// Handler exposes the registry over /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
