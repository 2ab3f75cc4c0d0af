// File: internal/observability/metrics.go
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Click attempt results as reported in grabber_click_attempts_total.
const (
	ClickSuccess        = "success"
	ClickRecoveredRetry = "recovered_retry"
	ClickExhausted      = "exhausted"
)

// Notification delivery statuses.
const (
	NotifySent   = "sent"
	NotifyFailed = "failed"
)

// Metrics groups the counters the poll loop reports.
type Metrics struct {
	// PollCycles counts completed poll cycles.
	PollCycles prometheus.Counter
	// ShortlistLoadFailures counts cycles where the shortlist never became visible.
	ShortlistLoadFailures prometheus.Counter
	// ActionableControls counts controls found with a non-empty action token.
	ActionableControls prometheus.Counter
	// ClickAttempts counts click tries by result.
	ClickAttempts *prometheus.CounterVec
	// Notifications counts operator notifications by kind and status.
	Notifications *prometheus.CounterVec
	// CycleDuration observes the working time of a poll cycle, excluding the refresh pause.
	CycleDuration prometheus.Histogram
}

// NewMetrics registers the metric set with reg. A nil reg yields unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PollCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "grabber_poll_cycles_total",
			Help: "Total number of completed poll cycles",
		}),
		ShortlistLoadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "grabber_shortlist_load_failures_total",
			Help: "Total number of cycles in which the shortlist did not load",
		}),
		ActionableControls: factory.NewCounter(prometheus.CounterOpts{
			Name: "grabber_actionable_controls_total",
			Help: "Total number of actionable controls discovered",
		}),
		ClickAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grabber_click_attempts_total",
				Help: "Total number of click tries by result",
			},
			[]string{"result"},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grabber_notifications_total",
				Help: "Total number of operator notifications by kind and status",
			},
			[]string{"kind", "status"},
		),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "grabber_poll_cycle_seconds",
			Help:    "Duration of a poll cycle, excluding the refresh pause",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 360, 900, 1800},
		}),
	}
}

// NewNopMetrics returns metrics that are not registered anywhere.
func NewNopMetrics() *Metrics {
	return NewMetrics(nil)
}
