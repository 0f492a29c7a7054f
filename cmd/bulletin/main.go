// Command bulletin runs a single bulletin digest pass and prints the result
// as JSON. It exits non-zero when the run reported any error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/octopus/bulletin-digest/internal/api/handler"
	"github.com/octopus/bulletin-digest/internal/config"
	"github.com/octopus/bulletin-digest/internal/db"
	"github.com/octopus/bulletin-digest/internal/mailer"
	"github.com/octopus/bulletin-digest/internal/repository"
	"github.com/octopus/bulletin-digest/internal/service"
)

func main() {
	force := flag.Bool("force", false, "ignore the per-user throttle window")
	delta := flag.Duration("delta", 0, "throttle window (default BULLETIN_DIGEST_DELTA)")
	migrate := flag.Bool("migrate", false, "apply database migrations before running")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if *delta <= 0 {
		*delta = cfg.DigestDelta
	}

	// SIGINT aborts start-up only; a started run is never cancelled since
	// its store writes record emails already sent.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if *migrate {
		if err := db.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

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
	)

	res := svc.SendAll(context.WithoutCancel(ctx), *force, *delta)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(handler.NewSendResponse(res)); err != nil {
		logger.Error("failed to write result", zap.Error(err))
	}

	if len(res.Errors) > 0 {
		pool.Close()
		_ = logger.Sync()
		os.Exit(1)
	}
}
