// Package metrics exposes Prometheus collectors for hunt runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hunt_runs_total",
			Help: "Finished hunt runs by final status",
		},
		[]string{"status"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hunt_run_duration_seconds",
			Help:    "Wall time of a hunt run",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)

	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hunt_queries_total",
			Help: "Provider queries by tier and outcome",
		},
		[]string{"tier", "outcome"},
	)

	candidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hunt_candidates_total",
			Help: "Persisted candidates by decision",
		},
		[]string{"decision"},
	)

	rejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hunt_rejections_total",
			Help: "Rejected results by reason code",
		},
		[]string{"reason"},
	)

	alertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hunt_alerts_total",
			Help: "Emitted alerts by decision",
		},
		[]string{"decision"},
	)
)

// ObserveRun records a finished run.
func ObserveRun(status string, d time.Duration) {
	runsTotal.WithLabelValues(status).Inc()
	runDuration.Observe(d.Seconds())
}

// ObserveQuery records one provider call.
func ObserveQuery(tier int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	queriesTotal.WithLabelValues(strconv.Itoa(tier), outcome).Inc()
}

// ObserveCandidate records a persisted candidate.
func ObserveCandidate(decision string) {
	candidatesTotal.WithLabelValues(decision).Inc()
}

// ObserveRejection records a result dropped with a reason code.
func ObserveRejection(reason string) {
	rejectionsTotal.WithLabelValues(reason).Inc()
}

// ObserveAlert records an emitted alert.
func ObserveAlert(decision string) {
	alertsTotal.WithLabelValues(decision).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
