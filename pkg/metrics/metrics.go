package metrics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for live sessions.
type Metrics struct {
	registry           *prometheus.Registry
	transitions        *prometheus.CounterVec
	casConflicts       prometheus.Counter
	credentialFailures prometheus.Counter
	recordingFailures  prometheus.Counter
	activeSessions     prometheus.Gauge
	httpRequests       *prometheus.CounterVec
}

// New creates and registers Prometheus metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "live_operations_total",
		Help: "Live session operations by operation and outcome",
	}, []string{"operation", "outcome"})
	casConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "live_cas_conflicts_total",
		Help: "Session state compare-and-set conflicts",
	})
	credentialFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "live_credential_failures_total",
		Help: "RTC credential issuance failures",
	})
	recordingFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "live_recording_commit_failures_total",
		Help: "Recording references that failed to persist on stop",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "live_active_sessions",
		Help: "Courses whose live status is ACTIVE",
	})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "live_http_requests_total",
		Help: "HTTP requests by method and status",
	}, []string{"method", "status"})

	registry.MustRegister(transitions, casConflicts, credentialFailures, recordingFailures, activeSessions, httpRequests)

	return &Metrics{
		registry:           registry,
		transitions:        transitions,
		casConflicts:       casConflicts,
		credentialFailures: credentialFailures,
		recordingFailures:  recordingFailures,
		activeSessions:     activeSessions,
		httpRequests:       httpRequests,
	}
}

// ObserveOperation counts one start/join/stop outcome.
func (m *Metrics) ObserveOperation(operation, outcome string) {
	m.transitions.WithLabelValues(operation, outcome).Inc()
}

// IncConflicts increments the CAS conflict counter.
func (m *Metrics) IncConflicts() { m.casConflicts.Inc() }

// IncCredentialFailures increments the credential failure counter.
func (m *Metrics) IncCredentialFailures() { m.credentialFailures.Inc() }

// IncRecordingFailures increments the recording commit failure counter.
func (m *Metrics) IncRecordingFailures() { m.recordingFailures.Inc() }

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) { m.activeSessions.Set(float64(n)) }

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// Middleware counts requests by method and status.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		m.httpRequests.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
