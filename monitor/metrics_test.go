package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glimte/intercept-go/dispatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Run("counts dispatches by outcome", func(t *testing.T) {
		m := NewMetrics()
		m.IncrementDispatchCount("qiskit", "qiskit.execute", dispatch.OutcomeCompleted)
		m.IncrementDispatchCount("qiskit", "qiskit.execute", dispatch.OutcomeCompleted)
		m.IncrementDispatchCount("qiskit", "qiskit.execute", dispatch.OutcomeTerminated)

		assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatches.WithLabelValues("qiskit", "qiskit.execute", "completed")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("qiskit", "qiskit.execute", "terminated")))
	})

	t.Run("observes durations", func(t *testing.T) {
		m := NewMetrics()
		m.RecordDispatchTime("dwave", "DWaveSampler", 20*time.Millisecond)
		m.RecordDispatchTime("dwave", "DWaveSampler", 40*time.Millisecond)

		assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
	})

	t.Run("handler exposes metrics", func(t *testing.T) {
		m := NewMetrics()
		m.IncrementDispatchCount("dwave", "DWaveSampler", dispatch.OutcomeFailed)

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), `intercept_dispatches_total{domain="dwave",outcome="failed",target_kind="DWaveSampler"} 1`))
	})
}

func TestSimpleMetricsCollector(t *testing.T) {
	c := NewSimpleMetricsCollector()
	c.IncrementDispatchCount("qiskit", "qiskit.execute", dispatch.OutcomeCompleted)
	c.IncrementDispatchCount("qiskit", "qiskit.execute", dispatch.OutcomeTerminated)
	for _, d := range []time.Duration{10, 20, 30, 40} {
		c.RecordDispatchTime("qiskit", "qiskit.execute", d*time.Millisecond)
	}

	summary := c.GetMetricsSummary()
	assert.Equal(t, map[string]int64{"completed": 1, "terminated": 1}, summary.DispatchCounts["qiskit/qiskit.execute"])

	stats := summary.DispatchStats["qiskit/qiskit.execute"]
	assert.Equal(t, int64(4), stats.Count)
	assert.Equal(t, 25*time.Millisecond, stats.Avg)
	assert.Equal(t, 10*time.Millisecond, stats.Min)
	assert.Equal(t, 40*time.Millisecond, stats.Max)
	assert.Equal(t, 20*time.Millisecond, stats.P50)

	c.Reset()
	assert.Empty(t, c.GetMetricsSummary().DispatchCounts)
}

func TestMulti(t *testing.T) {
	a, b := NewSimpleMetricsCollector(), NewSimpleMetricsCollector()
	m := Multi{a, b}
	m.IncrementDispatchCount("d", "k", dispatch.OutcomeCompleted)
	m.RecordDispatchTime("d", "k", time.Millisecond)

	assert.Equal(t, int64(1), a.GetMetricsSummary().DispatchCounts["d/k"]["completed"])
	assert.Equal(t, int64(1), b.GetMetricsSummary().DispatchStats["d/k"].Count)
}
