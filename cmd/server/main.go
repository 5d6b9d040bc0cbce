package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	academicsstore "scolaris/internal/academics/store"
	"scolaris/internal/audit"
	deduphandler "scolaris/internal/dedup/handler"
	"scolaris/internal/dedup/merge"
	dedupmetrics "scolaris/internal/dedup/metrics"
	"scolaris/internal/dedup/scan"
	dedupservice "scolaris/internal/dedup/service"
	dedupstore "scolaris/internal/dedup/store"
	"scolaris/internal/dedup/store/dossiercache"
	"scolaris/internal/platform/config"
	"scolaris/internal/platform/httpserver"
	"scolaris/internal/platform/logger"
	platformmetrics "scolaris/internal/platform/metrics"
	"scolaris/internal/platform/middleware"
	"scolaris/internal/platform/postgres"
	platformredis "scolaris/internal/platform/redis"
	studenthandler "scolaris/internal/student/handler"
	studentservice "scolaris/internal/student/service"
	studentstore "scolaris/internal/student/store"
)

// main wires the dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var auditor audit.Publisher = audit.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaAuditor, err := audit.NewKafka(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		auditor = kafkaAuditor
	}
	defer auditor.Close()

	students := studentstore.NewPostgres(db)
	academics := academicsstore.NewPostgres(db)
	groups := dedupstore.NewPostgres(db)

	m := dedupmetrics.New()
	registry := scan.NewRegistry(cfg.Scan.JobTTL)
	scanner := scan.NewScanner(students, groups, registry, cfg.Scan, log, m)
	counts := dossiercache.New(academics, redisClient, cfg.Redis.CountTTL)
	engine := merge.NewEngine(students, academics, groups, newMergeTxRunner(db), log)

	dedupSvc := dedupservice.New(scanner, registry, groups, counts, engine, m, log,
		dedupservice.WithAuditor(auditor))
	studentSvc := studentservice.New(students, log)

	jwtValidator := middleware.NewHMACValidator(cfg.JWTSigningKey)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Latency(platformmetrics.NewHTTP()))

	router.Get("/healthz", healthHandler(db, redisClient))
	router.Handle("/metrics", promhttp.Handler())

	deduphandler.New(dedupSvc, log, jwtValidator).Register(router)
	studenthandler.New(studentSvc, log, jwtValidator).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("scolaris listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func healthHandler(db interface {
	PingContext(ctx context.Context) error
}, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			http.Error(w, `{"status":"unhealthy"}`, http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, `{"status":"degraded"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
