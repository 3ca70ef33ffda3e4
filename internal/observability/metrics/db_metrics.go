package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "notifications_active",
			Help: "Active maintenance notifications",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM notifications WHERE active")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "recheck_tasks_pending",
			Help: "Pending recheck tasks",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM recheck_tasks WHERE status = 'pending'")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
