// Command orchestrator runs the ETL job orchestrator: the admin API,
// metrics server, scheduler scan loop and worker pool, or — when re-exec'd
// as a job child — a single isolated job attempt.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshaw/letl-go/alert"
	"github.com/dshaw/letl-go/config"
	"github.com/dshaw/letl-go/examples/catalog"
	"github.com/dshaw/letl-go/internal/health"
	ctxlog "github.com/dshaw/letl-go/internal/log"
	"github.com/dshaw/letl-go/internal/metrics"
	"github.com/dshaw/letl-go/store/postgres"
	"github.com/dshaw/letl-go/supervisor"
	"github.com/dshaw/letl-go/transport/http/router"
	"github.com/dshaw/letl-go/worker"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	jobCatalog, err := catalog.New()
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	// A re-exec'd child runs exactly one job attempt and exits. This must
	// be checked before any supervisor startup work — the child has no use
	// for the admin API, metrics server or scheduler.
	if jobName, ok := worker.IsChildExec(); ok {
		os.Exit(worker.RunChildExec(jobCatalog, jobName))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()
	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	statuses := postgres.NewStatusRepository(pool)
	logs := postgres.NewLogRepository(pool)

	notifier := alert.New(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, cfg.AlertTo, logger)

	sup := supervisor.New(supervisor.Config{
		Catalog:        jobCatalog,
		Statuses:       statuses,
		Logs:           logs,
		MaxWorkers:     cfg.MaxWorkers,
		ScanInterval:   time.Duration(cfg.ScanIntervalSec) * time.Second,
		DaysLogsToKeep: cfg.DaysLogsToKeep,
		Notifier:       notifier,
		Logger:         logger,
	})

	supDone := make(chan struct{})
	go func() {
		if err := sup.Run(ctx); err != nil {
			logger.Error("supervisor exited with error", "error", err)
		}
		close(supDone)
	}()

	adminSrv := &http.Server{
		Addr:    ":" + cfg.AdminPort,
		Handler: router.New(jobCatalog, statuses, logs, checker, sup.JobQueue(), cfg.AdminToken, logger),
	}
	go func() {
		logger.Info("admin api started", "port", cfg.AdminPort)
		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin api", "error", err)
		}
	}()

	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin api shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	<-supDone
	logger.Info("orchestrator shut down")
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
