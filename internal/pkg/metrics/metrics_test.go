package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Applied("donate", "inprogress")
	m.Rejected("donate", "PRECONDITION_FAILED")
	m.Rejected("donate", "EXPIRED")
	m.RequestCreated()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Transitions.WithLabelValues("donate", "inprogress")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Rejections.WithLabelValues("donate", "EXPIRED")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Conflicts))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Created))
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Applied("cancel", "cancelled")
		m.Rejected("cancel", "INVALID_STATE")
		m.RequestCreated()
	})
}
