package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/octopus/bulletin-digest/internal/api"
	"github.com/octopus/bulletin-digest/internal/config"
	"github.com/octopus/bulletin-digest/internal/db"
	"github.com/octopus/bulletin-digest/internal/mailer"
	"github.com/octopus/bulletin-digest/internal/metrics"
	"github.com/octopus/bulletin-digest/internal/repository"
	"github.com/octopus/bulletin-digest/internal/service"
	"github.com/octopus/bulletin-digest/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	mail, err := mailer.FromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("failed to configure mail transport", zap.Error(err))
	}

	svc := service.NewBulletinService(
		repository.NewPgNotificationRepository(pool),
		repository.NewPgUserRepository(pool),
		mail,
		logger,
		service.WithBatchSize(cfg.BatchSize),
		service.WithReconcileConcurrency(cfg.ReconcileConcurrency),
		service.WithRunHook(m.RunHook()),
	)

	// ---- scheduler ----
	// Context for background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var bw *worker.BulletinWorker
	if cfg.SchedulerEnabled {
		bw = worker.NewBulletinWorker(svc, cfg.SchedulerInterval, cfg.DigestDelta, cfg.RunOnStart, logger)
		bw.Start(workerCtx)
	}

	// ---- HTTP server ----
	router := api.NewRouter(svc, pool, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the scheduler and let an in-flight run finish reconciling.
	cancelWorkers()
	if bw != nil {
		bw.Wait()
	}

	logger.Info("server stopped cleanly")
}
