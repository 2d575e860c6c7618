// Package metrics exposes the gateway's Prometheus surface: a small set
// of gauges and counters registered against a private registry and
// served from GET /metrics, grounded on the teacher's
// internal/gateway/http_server.go promhttp.Handler() wiring.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector this gateway instance publishes.
type Metrics struct {
	registry *prometheus.Registry

	ActiveRequests     prometheus.Gauge
	PluginLoadFailures prometheus.Counter
	PluginLoadSuccess  prometheus.Counter
	InstallOutcomes    *prometheus.CounterVec
}

// New builds a Metrics bound to a fresh private registry (not the global
// default registry, so multiple Osaurus instances in one process — as
// in tests — don't collide on collector registration).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "osaurus",
			Name:      "active_requests",
			Help:      "Number of in-flight chat/messages/chat requests.",
		}),
		PluginLoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osaurus",
			Name:      "plugin_load_failures_total",
			Help:      "Count of external plugin load/init failures.",
		}),
		PluginLoadSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osaurus",
			Name:      "plugin_load_success_total",
			Help:      "Count of external plugins loaded successfully.",
		}),
		InstallOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "osaurus",
			Name:      "install_outcomes_total",
			Help:      "Count of plugin install/upgrade/rollback outcomes by result.",
		}, []string{"operation", "result"}),
	}
	reg.MustRegister(m.ActiveRequests, m.PluginLoadFailures, m.PluginLoadSuccess, m.InstallOutcomes)
	return m
}

// Handler returns the http.Handler to mount at GET /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
