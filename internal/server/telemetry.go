package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// telemetry holds the server's collectors on a private registry.
type telemetry struct {
	reg         *prometheus.Registry
	requests    *prometheus.CounterVec
	snapshots   *prometheus.CounterVec
	generations *prometheus.CounterVec
	genSeconds  *prometheus.HistogramVec
}

func newTelemetry() *telemetry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &telemetry{
		reg: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leadpilot_http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
		snapshots: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leadpilot_snapshots_total",
			Help: "Snapshot computations by outcome (ok, no_activity).",
		}, []string{"outcome"}),
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leadpilot_generations_total",
			Help: "Assistant generations by kind and status.",
		}, []string{"kind", "status"}),
		genSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leadpilot_generation_seconds",
			Help:    "Assistant generation latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"kind"}),
	}
}

func (t *telemetry) handler() http.Handler {
	return promhttp.HandlerFor(t.reg, promhttp.HandlerOpts{Registry: t.reg})
}
