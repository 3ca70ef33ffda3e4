package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	counterapp "fleet-maintenance/internal/counter/application"
	counterrepo "fleet-maintenance/internal/counter/infrastructure/postgres"
	counterhttp "fleet-maintenance/internal/counter/interfaces/http"
	fleetrepo "fleet-maintenance/internal/fleet/infrastructure/postgres"
	maintapp "fleet-maintenance/internal/maintenance/application"
	maintrepo "fleet-maintenance/internal/maintenance/infrastructure/postgres"
	mainthttp "fleet-maintenance/internal/maintenance/interfaces/http"
	notifapp "fleet-maintenance/internal/notifications/application"
	notifrepo "fleet-maintenance/internal/notifications/infrastructure/postgres"
	notifhttp "fleet-maintenance/internal/notifications/interfaces/http"
	"fleet-maintenance/internal/notifications/notify"
	"fleet-maintenance/internal/observability/metrics"
	"fleet-maintenance/internal/scheduler"
	schedulerrepo "fleet-maintenance/internal/scheduler/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)

	schedCfg, err := scheduler.LoadConfig(cfg.SchedulerConfigPath)
	if err != nil {
		logger.Fatalf("scheduler config error: %v", err)
	}
	if cfg.SweepInterval > 0 {
		schedCfg.SweepInterval = cfg.SweepInterval
	}
	if cfg.RecheckDelay > 0 {
		schedCfg.RecheckDelay = cfg.RecheckDelay
	}

	vehicleRepo := fleetrepo.NewVehicleRepository(db)
	fuelRepo := counterrepo.NewFuelEntryRepository(db)
	visitRepo := maintrepo.NewVisitRepository(db)
	settingsRepo := maintrepo.NewSettingsRepository(db)
	notificationRepo := notifrepo.NewNotificationRepository(db)
	taskStore := schedulerrepo.NewTaskStore(db)

	var notifiers notify.MultiNotifier
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.WebhookURL, notify.WithWebhookLogger(logger)))
	}

	engine, err := notifapp.NewEngine(vehicleRepo, settingsRepo, visitRepo, notificationRepo,
		notifapp.WithNotifier(notifiers),
		notifapp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("notification engine error: %v", err)
	}

	ledger, err := counterapp.NewLedger(
		vehicleRepo,
		[]counterapp.EventSource{fuelRepo, visitRepo},
		counterapp.WithRecorder(fuelRepo),
		counterapp.WithEvaluator(engine),
		counterapp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("counter ledger error: %v", err)
	}

	recheckQueue, err := scheduler.NewRecheckQueue(taskStore, engine, schedCfg, logger)
	if err != nil {
		logger.Fatalf("recheck queue error: %v", err)
	}

	visitService, err := maintapp.NewVisitService(visitRepo, ledger, engine, recheckQueue,
		maintapp.WithRecheckDelay(schedCfg.RecheckDelay),
		maintapp.WithVisitLogger(logger),
	)
	if err != nil {
		logger.Fatalf("visit service error: %v", err)
	}

	settingsService, err := maintapp.NewSettingsService(settingsRepo, vehicleRepo, engine, engine, logger)
	if err != nil {
		logger.Fatalf("settings service error: %v", err)
	}

	reminderService, err := maintapp.NewReminderService(vehicleRepo, settingsRepo, visitRepo)
	if err != nil {
		logger.Fatalf("reminder service error: %v", err)
	}

	sweeper, err := scheduler.NewSweeper(vehicleRepo, engine, schedCfg.SweepInterval, logger)
	if err != nil {
		logger.Fatalf("sweeper error: %v", err)
	}
	go sweeper.Start(context.Background())
	go recheckQueue.Start(context.Background())

	counterHandler, err := counterhttp.NewHandler(ledger)
	if err != nil {
		logger.Fatalf("counter handler error: %v", err)
	}
	maintenanceHandler, err := mainthttp.NewHandler(reminderService, settingsService, visitService, sweeper)
	if err != nil {
		logger.Fatalf("maintenance handler error: %v", err)
	}
	notificationHandler, err := notifhttp.NewHandler(engine)
	if err != nil {
		logger.Fatalf("notifications handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/counters/", counterHandler)
	mux.Handle("/api/v1/maintenance/", maintenanceHandler)
	mux.Handle("/api/v1/notifications", notificationHandler)
	mux.Handle("/api/v1/notifications/", notificationHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL         string
	HTTPAddr            string
	WebhookURL          string
	SchedulerConfigPath string
	SweepInterval       time.Duration
	RecheckDelay        time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:         getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:            getenvDefault("HTTP_ADDR", ":8080"),
		WebhookURL:          getenvDefault("NOTIFY_WEBHOOK_URL", ""),
		SchedulerConfigPath: getenvDefault("SCHEDULER_CONFIG", ""),
		SweepInterval:       getenvDuration("SWEEP_INTERVAL", 0),
		RecheckDelay:        getenvDuration("RECHECK_DELAY", 0),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
