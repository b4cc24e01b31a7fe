package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("invoice:sweep_overdue").End(nil))
	err := m.Track("invoice:sweep_overdue").End(errors.New("boom"))
	require.EqualError(t, err, "boom")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("invoice:sweep_overdue", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("invoice:sweep_overdue", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("invoice:sweep_overdue")))
}

func TestAddSwept(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddSwept(5, 2, 0)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.swept.WithLabelValues("checked")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.swept.WithLabelValues("changed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.swept.WithLabelValues("failed")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddSwept(1, 1, 1)
	err := errors.New("kept")
	assert.Same(t, err, m.Track("x").End(err))
}
