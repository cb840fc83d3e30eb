package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Analysis metrics
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echo_speech_analyses_total",
		Help: "Total number of analysis tasks by kind and outcome",
	}, []string{"kind", "status"})

	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "echo_speech_analysis_duration_seconds",
		Help:    "Analysis task latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"kind"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "echo_speech_active_sessions",
		Help: "Number of analysis sessions in flight",
	})

	boundaryFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "echo_speech_boundary_fallbacks_total",
		Help: "Boundary selections that fell back to a uniform partition",
	})

	// Transcription metrics
	transcriptionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echo_speech_transcription_requests_total",
		Help: "Total number of transcription requests",
	}, []string{"provider", "status"})

	transcriptionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "echo_speech_transcription_latency_seconds",
		Help:    "Transcription latency in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"provider"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "echo_speech_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echo_speech_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// HTTP metrics
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echo_speech_http_requests_total",
		Help: "HTTP requests by method, endpoint and status code",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "echo_speech_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

// RecordAnalysis records the outcome of one analysis task.
func RecordAnalysis(kind string, success bool, elapsed time.Duration) {
	analysesTotal.WithLabelValues(kind, statusLabel(success)).Inc()
	analysisDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// SessionStarted and SessionEnded track sessions in flight.
func SessionStarted() { activeSessions.Inc() }

func SessionEnded() { activeSessions.Dec() }

// RecordBoundaryFallback counts a uniform-partition fallback.
func RecordBoundaryFallback() {
	boundaryFallbacks.Inc()
}

// RecordTranscription records one transcription provider call.
func RecordTranscription(provider string, success bool, elapsed time.Duration) {
	transcriptionRequests.WithLabelValues(provider, statusLabel(success)).Inc()
	transcriptionLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(method, endpoint, status string, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, endpoint, status).Inc()
	httpLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
