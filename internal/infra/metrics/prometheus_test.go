package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAPIMetrics(t *testing.T) {
	m := NewAPIMetrics(prometheus.NewRegistry())

	m.RequestStarted("/records", "POST")
	m.RequestCompleted("/records", "POST", "201", 10*time.Millisecond, 64, 32)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCounter.WithLabelValues("/records", "POST", "201")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeRequests.WithLabelValues("/records", "POST")))

	m.RecordCreated("estimator")
	m.Recomputed("record_create", "success", 3)
	m.EstimatorCalled("upstream_error")
	m.LoginAttempt("failure")
	m.CacheLookup("memory", "hit")
	m.CircuitBreakerStateChanged("nutritionix", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordsCreated.WithLabelValues("estimator")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recomputes.WithLabelValues("record_create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.estimatorCalls.WithLabelValues("upstream_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginAttempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.estimateCache.WithLabelValues("memory", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.circuitBreakerOpen.WithLabelValues("nutritionix")))
}

func TestNewAPIMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewAPIMetrics(prometheus.NewRegistry())
		NewAPIMetrics(prometheus.NewRegistry())
	})
}
