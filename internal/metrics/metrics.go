package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration tracks request latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tally_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ActiveSessions tracks currently connected MCP sessions per transport
	ActiveSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tally_active_sessions",
			Help: "Number of active MCP sessions",
		},
		[]string{"transport"},
	)

	// ToolCalls tracks MCP tool invocations
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_tool_calls_total",
			Help: "Total number of MCP tool calls",
		},
		[]string{"tool", "status"},
	)

	// CounterValue mirrors the most recently observed counter value. With
	// per-connection instances this is a last-writer-wins observation, useful
	// for dashboards rather than exact accounting.
	CounterValue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tally_counter_value",
			Help: "Most recently observed counter value",
		},
	)

	// HistoryRecords counts rows written to the invocation history store
	HistoryRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tally_history_records_total",
			Help: "Total number of invocation history records written",
		},
		[]string{"status"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware creates an HTTP middleware that records metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		RequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// normalizePath normalizes URL paths to avoid high cardinality
func normalizePath(path string) string {
	switch path {
	case "/health", "/sse", "/mcp", "/metrics":
		return path
	default:
		if len(path) > 5 && path[:5] == "/sse/" {
			return "/sse"
		}
		if len(path) > 5 && path[:5] == "/mcp/" {
			return "/mcp"
		}
		return "other"
	}
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSessionStart increments the active session gauge for a transport
func RecordSessionStart(transport string) {
	ActiveSessions.WithLabelValues(transport).Inc()
}

// RecordSessionEnd decrements the active session gauge for a transport
func RecordSessionEnd(transport string) {
	ActiveSessions.WithLabelValues(transport).Dec()
}

// RecordToolCall records an MCP tool invocation
func RecordToolCall(tool, status string) {
	ToolCalls.WithLabelValues(tool, status).Inc()
}

// ObserveCounterValue records the latest counter value
func ObserveCounterValue(v int64) {
	CounterValue.Set(float64(v))
}

// RecordHistoryWrite records an invocation history write attempt
func RecordHistoryWrite(status string) {
	HistoryRecords.WithLabelValues(status).Inc()
}
