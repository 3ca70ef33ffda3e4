package metrics

import (
	"database/sql"
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "fleet_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	validationRejections *prometheus.CounterVec

	evaluationsTotal  *prometheus.CounterVec
	evaluationLatency *prometheus.HistogramVec

	notificationEvents *prometheus.CounterVec

	sweepRuns    prometheus.Counter
	sweepCreated prometheus.Counter

	recheckTasks *prometheus.CounterVec
)

// Init registers engine metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		validationRejections = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "counter_validation_rejections_total",
				Help: "Rejected counter readings by reason",
			},
			[]string{"reason"},
		)

		evaluationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notification_evaluations_total",
				Help: "Notification evaluations by result",
			},
			[]string{"result"},
		)
		evaluationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "notification_evaluation_latency_seconds",
				Help:    "Notification evaluation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		notificationEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notification_events_total",
				Help: "Notification lifecycle events by type",
			},
			[]string{"type"},
		)

		sweepRuns = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "sweep_runs_total",
				Help: "Total periodic sweep runs",
			},
		)
		sweepCreated = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "sweep_notifications_created_total",
				Help: "Notifications created by sweeps",
			},
		)

		recheckTasks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "recheck_tasks_total",
				Help: "Processed recheck tasks by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			validationRejections,
			evaluationsTotal,
			evaluationLatency,
			notificationEvents,
			sweepRuns,
			sweepCreated,
			recheckTasks,
		)

		registerDBMetrics(db, logger)
	})
}

// IncValidationRejection counts a rejected counter reading.
func IncValidationRejection(reason string) {
	if validationRejections == nil {
		return
	}
	validationRejections.WithLabelValues(reason).Inc()
}

// ObserveEvaluation records one notification evaluation.
func ObserveEvaluation(err error, seconds float64) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if evaluationsTotal != nil {
		evaluationsTotal.WithLabelValues(result).Inc()
	}
	if evaluationLatency != nil {
		evaluationLatency.WithLabelValues(result).Observe(seconds)
	}
}

// IncNotificationEvent counts a notification lifecycle event.
func IncNotificationEvent(eventType string) {
	if notificationEvents == nil {
		return
	}
	notificationEvents.WithLabelValues(eventType).Inc()
}

// IncSweepRun counts a completed sweep.
func IncSweepRun() {
	if sweepRuns == nil {
		return
	}
	sweepRuns.Inc()
}

// AddSweepCreated counts notifications created during a sweep.
func AddSweepCreated(count int) {
	if sweepCreated == nil || count <= 0 {
		return
	}
	sweepCreated.Add(float64(count))
}

// IncRecheckTask counts a processed recheck task.
func IncRecheckTask(result string) {
	if recheckTasks == nil {
		return
	}
	recheckTasks.WithLabelValues(result).Inc()
}
