package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/stocklane-io/stocklane-backend/internal/cron"
	"github.com/stocklane-io/stocklane-backend/internal/inventory"
	"github.com/stocklane-io/stocklane-backend/internal/reconcile"
	"github.com/stocklane-io/stocklane-backend/pkg/config"
	"github.com/stocklane-io/stocklane-backend/pkg/db"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
	"github.com/stocklane-io/stocklane-backend/pkg/metrics"
	"github.com/stocklane-io/stocklane-backend/pkg/migrate"
	"github.com/stocklane-io/stocklane-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconciler"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "reconciler",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()
	reconcileSvc, err := reconcile.NewService(reconcile.NewRepository(conn), inventory.NewRepository(conn), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire reconcile service", err)
		os.Exit(1)
	}

	runner, err := cron.NewRunner(redisClient, metrics.NewJobMetrics(prometheus.DefaultRegisterer), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire job runner", err)
		os.Exit(1)
	}

	job := cron.Job{
		Name:     "ledger-reconcile",
		Interval: cfg.Recon.Interval,
		LockTTL:  cfg.Recon.LockTTL,
		Fn: func(ctx context.Context) error {
			// CheckAll keeps sweeping past failing tenants, so the reports
			// are worth inspecting even when it returns an error.
			reports, err := reconcileSvc.CheckAll(ctx)
			dirty := 0
			for _, report := range reports {
				if !report.Clean() {
					dirty++
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"tenant_id":  report.TenantID.String(),
						"mismatches": len(report.Mismatches),
					}), "reconciliation drift detected")
				}
			}
			if dirty > 0 {
				err = multierr.Append(err, fmt.Errorf("%d of %d tenants have ledger drift", dirty, len(reports)))
			}
			return err
		},
	}
	if err := runner.Register(job); err != nil {
		logg.Error(context.Background(), "failed to register reconcile job", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "starting reconciler")
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reconciler stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "reconciler stopped")
}
