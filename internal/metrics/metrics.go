package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axiom_gateway_turns_total",
			Help: "Total number of chat turns by outcome",
		},
		[]string{"outcome"},
	)

	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axiom_gateway_llm_requests_total",
			Help: "Total number of LLM API requests by status",
		},
		[]string{"status"},
	)

	GatewayLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "axiom_gateway_llm_request_duration_seconds",
			Help: "LLM API request duration in seconds",
		},
	)

	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "axiom_gateway_tool_calls_total",
			Help: "Total number of tool calls by function name",
		},
		[]string{"tool"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "axiom_gateway_active_sessions",
			Help: "Number of live chat sessions (created minus pruned)",
		},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "axiom_gateway_http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "path"},
	)
)

// RequestDuration records one served HTTP request.
func RequestDuration(method, path string, d time.Duration) {
	httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
