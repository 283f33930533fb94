package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stocklane-io/stocklane-backend/api/controllers"
	"github.com/stocklane-io/stocklane-backend/api/routes"
	"github.com/stocklane-io/stocklane-backend/internal/catalog"
	"github.com/stocklane-io/stocklane-backend/internal/counts"
	"github.com/stocklane-io/stocklane-backend/internal/exports"
	"github.com/stocklane-io/stocklane-backend/internal/inventory"
	"github.com/stocklane-io/stocklane-backend/internal/ledger"
	"github.com/stocklane-io/stocklane-backend/internal/purchaseorders"
	"github.com/stocklane-io/stocklane-backend/internal/reconcile"
	"github.com/stocklane-io/stocklane-backend/internal/reservations"
	"github.com/stocklane-io/stocklane-backend/internal/stores"
	"github.com/stocklane-io/stocklane-backend/internal/transfers"
	"github.com/stocklane-io/stocklane-backend/internal/webhooks"
	"github.com/stocklane-io/stocklane-backend/pkg/config"
	"github.com/stocklane-io/stocklane-backend/pkg/db"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
	"github.com/stocklane-io/stocklane-backend/pkg/migrate"
	"github.com/stocklane-io/stocklane-backend/pkg/outbox"
	"github.com/stocklane-io/stocklane-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	svcs, err := buildServices(dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}
	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, readiness, svcs),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "server shutdown error", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func buildServices(dbClient *db.Client, logg *logger.Logger) (routes.Services, error) {
	conn := dbClient.DB()
	runner := db.GormTxRunner{DB: conn}

	invRepo := inventory.NewRepository(conn)
	transferRepo := transfers.NewRepository(conn)
	events := outbox.NewService(outbox.NewRepository(conn), logg)

	storeSvc, err := stores.NewService(stores.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}
	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}
	ledgerSvc, err := ledger.NewService(runner, ledger.NewRepository(conn), invRepo, events, logg)
	if err != nil {
		return routes.Services{}, err
	}
	invSvc, err := inventory.NewService(invRepo, transferRepo)
	if err != nil {
		return routes.Services{}, err
	}
	reservationSvc, err := reservations.NewService(runner, reservations.NewRepository(conn), invRepo, ledgerSvc, storeSvc, logg)
	if err != nil {
		return routes.Services{}, err
	}
	transferSvc, err := transfers.NewService(runner, transferRepo, ledgerSvc, storeSvc, catalogSvc, events, logg)
	if err != nil {
		return routes.Services{}, err
	}
	countSvc, err := counts.NewService(runner, counts.NewRepository(conn), invRepo, ledgerSvc, events, logg)
	if err != nil {
		return routes.Services{}, err
	}
	poSvc, err := purchaseorders.NewService(runner, purchaseorders.NewRepository(conn), ledgerSvc, events, logg)
	if err != nil {
		return routes.Services{}, err
	}
	reconcileSvc, err := reconcile.NewService(reconcile.NewRepository(conn), invRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}
	exportSvc, err := exports.NewService(runner, exports.NewRepository(conn), logg)
	if err != nil {
		return routes.Services{}, err
	}
	webhookSvc, err := webhooks.NewSubscriptionService(webhooks.NewSubscriptionRepository(conn), logg)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Inventory:      invSvc,
		Ledger:         ledgerSvc,
		Stores:         storeSvc,
		Reservations:   reservationSvc,
		Transfers:      transferSvc,
		Counts:         countSvc,
		PurchaseOrders: poSvc,
		Reconcile:      reconcileSvc,
		Exports:        exportSvc,
		Webhooks:       webhookSvc,
	}, nil
}
