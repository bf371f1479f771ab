// Package metrics holds the Prometheus collectors for request transitions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Transitions *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Created     prometheus.Counter
	Conflicts   prometheus.Counter
}

// New registers the collectors on reg. A nil reg gets a private registry,
// which keeps tests from colliding on the default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blood_donation",
			Name:      "request_transitions_total",
			Help:      "Applied donation request transitions by action and resulting status.",
		}, []string{"action", "status"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blood_donation",
			Name:      "request_rejections_total",
			Help:      "Rejected donation request actions by action and reason code.",
		}, []string{"action", "reason"}),
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blood_donation",
			Name:      "requests_created_total",
			Help:      "Donation requests created.",
		}),
		Conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blood_donation",
			Name:      "request_precondition_failures_total",
			Help:      "Transitions refused because the stored request changed underneath the caller.",
		}),
	}

	reg.MustRegister(m.Transitions, m.Rejections, m.Created, m.Conflicts)
	return m
}

func (m *Metrics) Applied(action, status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(action, status).Inc()
}

func (m *Metrics) Rejected(action, reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(action, reason).Inc()
	if reason == "PRECONDITION_FAILED" {
		m.Conflicts.Inc()
	}
}

func (m *Metrics) RequestCreated() {
	if m == nil {
		return
	}
	m.Created.Inc()
}
