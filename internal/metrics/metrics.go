// Package metrics exposes Prometheus instrumentation for the collector.
//
// A single Registry implements both the connection observer and the router
// metrics hooks, so the manager and router stay free of any Prometheus
// dependency.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minerwatch/minerlink/internal/connection"
)

// Registry holds all Prometheus metrics for minerlink.
type Registry struct {
	reg *prometheus.Registry

	// Connection metrics
	ConnectionState  prometheus.Gauge
	StateTransitions *prometheus.CounterVec
	ReconnectDelay   prometheus.Histogram
	Reconnects       prometheus.Counter
	HeartbeatLatency prometheus.Histogram

	// Router metrics
	FramesRouted  *prometheus.CounterVec
	FramesDropped *prometheus.CounterVec

	// Writer metrics
	RowsWritten *prometheus.CounterVec
}

// New creates a metrics registry with all minerlink metrics registered
// against a private Prometheus registry.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		ConnectionState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "minerlink_connection_state",
				Help: "Current connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting, 4=faulted)",
			},
		),

		StateTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minerlink_connection_transitions_total",
				Help: "Total number of connection state transitions",
			},
			[]string{"from_state", "to_state"},
		),

		ReconnectDelay: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "minerlink_reconnect_delay_seconds",
				Help:    "Scheduled reconnect delay in seconds",
				Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		Reconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "minerlink_reconnects_total",
				Help: "Total number of reconnect attempts scheduled",
			},
		),

		HeartbeatLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "minerlink_heartbeat_rtt_ms",
				Help:    "Heartbeat round-trip latency in milliseconds",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
			},
		),

		FramesRouted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minerlink_frames_routed_total",
				Help: "Total number of domain update frames routed by domain",
			},
			[]string{"domain"},
		),

		FramesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minerlink_frames_dropped_total",
				Help: "Total number of frames dropped by reason",
			},
			[]string{"reason"},
		),

		RowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minerlink_history_rows_total",
				Help: "Total number of history rows written by table",
			},
			[]string{"table"},
		),
	}

	r.reg.MustRegister(
		r.ConnectionState,
		r.StateTransitions,
		r.ReconnectDelay,
		r.Reconnects,
		r.HeartbeatLatency,
		r.FramesRouted,
		r.FramesDropped,
		r.RowsWritten,
	)

	return r
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// StateChanged implements connection.Observer.
func (r *Registry) StateChanged(old, new connection.State) {
	r.ConnectionState.Set(float64(new))
	r.StateTransitions.WithLabelValues(old.String(), new.String()).Inc()
}

// ReconnectScheduled implements connection.Observer.
func (r *Registry) ReconnectScheduled(attempt int, delay time.Duration) {
	r.Reconnects.Inc()
	r.ReconnectDelay.Observe(delay.Seconds())
}

// HeartbeatRTT implements connection.Observer.
func (r *Registry) HeartbeatRTT(rtt time.Duration) {
	r.HeartbeatLatency.Observe(float64(rtt.Milliseconds()))
}

// FrameRouted implements router.Metrics.
func (r *Registry) FrameRouted(domain string) {
	r.FramesRouted.WithLabelValues(domain).Inc()
}

// FrameDropped implements router.Metrics.
func (r *Registry) FrameDropped(reason string) {
	r.FramesDropped.WithLabelValues(reason).Inc()
}

// RowsFlushed records rows written to a history table.
func (r *Registry) RowsFlushed(table string, n int64) {
	r.RowsWritten.WithLabelValues(table).Add(float64(n))
}
