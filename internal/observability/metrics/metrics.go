package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for backend calls.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport_error"
	OutcomeHTTP      = "http_error"
	OutcomeLogical   = "logical_error"
)

// BackendMetrics exposes counters/histograms for calls to the clinic backend
// and for the notifications shown to the user.
type BackendMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	toastsTotal     *prometheus.CounterVec
}

func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	m := &BackendMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total calls made to the clinic backend",
		}, []string{"operation", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Latency of clinic backend calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		toastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Name:      "toasts_total",
			Help:      "Notifications surfaced to the user",
		}, []string{"level"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.toastsTotal)
	return m
}

func (m *BackendMetrics) ObserveRequest(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, outcome).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *BackendMetrics) ObserveToast(level string) {
	if m == nil {
		return
	}
	m.toastsTotal.WithLabelValues(level).Inc()
}

// PortalMetrics tracks requests served by the portal itself.
type PortalMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	throttledTotal  prometheus.Counter
}

func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	m := &PortalMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "portal",
			Name:      "requests_total",
			Help:      "Requests served by the portal",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "portal",
			Name:      "request_duration_seconds",
			Help:      "Latency of portal requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		throttledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "portal",
			Name:      "throttled_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.throttledTotal)
	return m
}

func (m *PortalMetrics) ObserveRequest(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(seconds)
}

func (m *PortalMetrics) ObserveThrottled() {
	if m == nil {
		return
	}
	m.throttledTotal.Inc()
}
