package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. One instance is
// created at startup and threaded through the registry and server.
type Metrics struct {
	ToolExecutions  *prometheus.CounterVec
	ToolDuration    *prometheus.HistogramVec
	ActiveSessions  prometheus.Gauge
	SessionEvicted  prometheus.Counter
	ProtocolCalls   *prometheus.CounterVec
	BatchTargets    prometheus.Counter
	RetriesAttempts prometheus.Counter
}

// NewMetrics registers the collectors against reg. Pass a fresh
// prometheus.NewRegistry in tests to avoid global collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ToolExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netprobe",
			Name:      "tool_executions_total",
			Help:      "Tool executions by tool name and outcome.",
		}, []string{"tool", "status"}),
		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "netprobe",
			Name:      "tool_duration_seconds",
			Help:      "Wall-clock execution time per tool.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"tool"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "netprobe",
			Name:      "active_sessions",
			Help:      "Conversation sessions currently held in memory.",
		}),
		SessionEvicted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "netprobe",
			Name:      "sessions_evicted_total",
			Help:      "Sessions removed by capacity eviction or idle expiry.",
		}),
		ProtocolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netprobe",
			Name:      "protocol_requests_total",
			Help:      "Protocol server requests by method and outcome.",
		}, []string{"method", "status"}),
		BatchTargets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "netprobe",
			Name:      "batch_targets_total",
			Help:      "Targets processed by batch runs.",
		}),
		RetriesAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "netprobe",
			Name:      "retries_total",
			Help:      "Retry attempts made for transient network failures.",
		}),
	}
}

// ObserveExecution records one tool run.
func (m *Metrics) ObserveExecution(tool string, success bool, seconds float64) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.ToolExecutions.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(seconds)
}

// ObserveProtocol records one protocol server request.
func (m *Metrics) ObserveProtocol(method, status string) {
	if m == nil {
		return
	}
	m.ProtocolCalls.WithLabelValues(method, status).Inc()
}
