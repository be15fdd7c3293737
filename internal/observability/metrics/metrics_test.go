package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBackendMetrics(reg)
	m.ObserveRequest("list_slots", OutcomeOK, 0.2)
	m.ObserveRequest("list_slots", OutcomeOK, 0.1)
	m.ObserveRequest("book_appointment", OutcomeHTTP, 0.3)
	m.ObserveToast("error")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("list_slots", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("book_appointment", OutcomeHTTP)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toastsTotal.WithLabelValues("error")))
}

func TestBackendMetricsHistogramCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBackendMetrics(reg)
	m.ObserveRequest("login", OutcomeLogical, 0.05)

	families, err := reg.Gather()
	require.NoError(t, err)

	var hist *dto.Metric
	for _, fam := range families {
		if fam.GetName() == "clinic_backend_request_duration_seconds" {
			hist = fam.GetMetric()[0]
		}
	}
	require.NotNil(t, hist, "duration histogram not gathered")
	assert.Equal(t, uint64(1), hist.GetHistogram().GetSampleCount())
}

func TestBackendMetricsNilSafe(t *testing.T) {
	var m *BackendMetrics
	m.ObserveRequest("login", OutcomeOK, 0.1)
	m.ObserveToast("success")
}

func TestPortalMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPortalMetrics(reg)
	m.ObserveRequest("GET", "/views/slots", 200, 0.01)
	m.ObserveRequest("GET", "/views/slots", 200, 0.02)
	m.ObserveThrottled()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/views/slots", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.throttledTotal))

	var nilMetrics *PortalMetrics
	nilMetrics.ObserveRequest("GET", "/", 500, 0)
	nilMetrics.ObserveThrottled()
}
