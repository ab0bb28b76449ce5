package audit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts transitions and times units of work.
type Metrics struct {
	TransitionsTotal    *prometheus.CounterVec
	UnitDuration        *prometheus.HistogramVec
	NotificationsTotal  *prometheus.CounterVec
	InsufficientReviews prometheus.Counter
}

// NewMetrics creates and registers the workflow metrics on reg. A nil reg
// uses the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "editorial_transitions_total",
				Help: "Workflow transitions that reached a handler",
			},
			[]string{"entity", "from", "to", "outcome"},
		),
		UnitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "editorial_unit_duration_seconds",
				Help:    "Duration of workflow units of work in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action", "status"},
		),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "editorial_notifications_total",
				Help: "Notifications dispatched after commit",
			},
			[]string{"status"},
		),
		InsufficientReviews: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "editorial_insufficient_reviewers_total",
				Help: "Submissions where automatic reviewer assignment found too few candidates",
			},
		),
	}
}

func (m *Metrics) RecordTransition(_ context.Context, rec Record) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(rec.Entity, rec.From, rec.To, rec.Outcome()).Inc()
}

// ObserveUnit records how long a unit of work took.
func (m *Metrics) ObserveUnit(action string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.UnitDuration.WithLabelValues(action, status).Observe(d.Seconds())
}

// ObserveNotification counts one delivery attempt.
func (m *Metrics) ObserveNotification(err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.NotificationsTotal.WithLabelValues(status).Inc()
}

// ObserveInsufficientReviewers counts a skipped automatic assignment.
func (m *Metrics) ObserveInsufficientReviewers() {
	if m == nil {
		return
	}
	m.InsufficientReviews.Inc()
}
