// Package metrics exposes component readiness and activity outcomes to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gazolla/cafeflow/internal/readiness"
)

// Activity outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

var (
	componentReady = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cafeflow_component_ready",
			Help: "Component readiness from the startup report: 1 ready, 0 missing configuration, -1 not active",
		},
		[]string{"component"},
	)

	activityTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cafeflow_activity_total",
			Help: "Total activity executions by activity and outcome",
		},
		[]string{"activity", "outcome"},
	)

	activityDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cafeflow_activity_duration_seconds",
			Help:    "Activity execution time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"activity"},
	)
)

// RecordReadiness sets the readiness gauge for every status.
func RecordReadiness(statuses []readiness.ComponentStatus) {
	for _, s := range statuses {
		componentReady.WithLabelValues(s.Name).Set(stateValue(s.State))
	}
}

// RecordActivity counts one activity execution and observes its duration.
func RecordActivity(activity, outcome string, elapsed time.Duration) {
	activityTotal.WithLabelValues(activity, outcome).Inc()
	if outcome != OutcomeSkipped {
		activityDuration.WithLabelValues(activity).Observe(elapsed.Seconds())
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func stateValue(state readiness.State) float64 {
	switch state {
	case readiness.StateReady:
		return 1
	case readiness.StateMissingConfig:
		return 0
	default:
		return -1
	}
}
