package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stocklane-io/stocklane-backend/api/controllers"
	"github.com/stocklane-io/stocklane-backend/api/middleware"
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
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
)

// Services bundles everything the router hands to controllers.
type Services struct {
	Inventory      inventory.Service
	Ledger         ledger.Service
	Stores         stores.Service
	Reservations   reservations.Service
	Transfers      transfers.Service
	Counts         counts.Service
	PurchaseOrders purchaseorders.Service
	Reconcile      reconcile.Service
	Exports        exports.Service
	Webhooks       webhooks.SubscriptionService
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Tenant(logg))

		r.Route("/stores/{storeID}", func(r chi.Router) {
			r.Get("/availability", controllers.StoreAvailability(svcs.Inventory, logg))
			r.Get("/availability/{variantID}", controllers.Availability(svcs.Inventory, logg))
			r.Get("/ledger/{variantID}", controllers.LedgerEntries(svcs.Ledger, logg))
		})

		r.Get("/ledger", controllers.LedgerSearch(svcs.Ledger, logg))

		r.Post("/adjustments", controllers.AdjustmentCreate(svcs.Ledger, svcs.Stores, logg))

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", controllers.ReservationCreate(svcs.Reservations, logg))
			r.Get("/{reservationID}", controllers.ReservationGet(svcs.Reservations, logg))
			r.Post("/{reservationID}/commit", controllers.ReservationCommit(svcs.Reservations, logg))
			r.Post("/{reservationID}/release", controllers.ReservationRelease(svcs.Reservations, logg))
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", controllers.TransferCreate(svcs.Transfers, logg))
			r.Get("/", controllers.TransferList(svcs.Transfers, logg))
			r.Get("/{transferID}", controllers.TransferGet(svcs.Transfers, logg))
			r.Post("/{transferID}/send", controllers.TransferSend(svcs.Transfers, logg))
			r.Post("/{transferID}/receive", controllers.TransferReceive(svcs.Transfers, logg))
			r.Post("/{transferID}/cancel", controllers.TransferCancel(svcs.Transfers, logg))
		})

		r.Route("/counts", func(r chi.Router) {
			r.Post("/", controllers.CountOpen(svcs.Counts, logg))
			r.Get("/{sessionID}", controllers.CountGet(svcs.Counts, logg))
			r.Post("/{sessionID}/lines/{lineID}", controllers.CountRecord(svcs.Counts, logg))
			r.Post("/{sessionID}/finalize", controllers.CountFinalize(svcs.Counts, logg))
			r.Post("/{sessionID}/cancel", controllers.CountCancel(svcs.Counts, logg))
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Post("/", controllers.PurchaseOrderCreate(svcs.PurchaseOrders, logg))
			r.Get("/{poID}", controllers.PurchaseOrderGet(svcs.PurchaseOrders, logg))
			r.Post("/{poID}/receive", controllers.PurchaseOrderReceive(svcs.PurchaseOrders, logg))
			r.Post("/{poID}/cancel", controllers.PurchaseOrderCancel(svcs.PurchaseOrders, logg))
		})

		r.Post("/reconcile", controllers.ReconcileRun(svcs.Reconcile, logg))

		r.Route("/exports", func(r chi.Router) {
			r.Post("/batch", controllers.ExportBatch(svcs.Exports, cfg, logg))
			r.Get("/cursor", controllers.ExportCursor(svcs.Exports, logg))
		})

		r.Route("/webhook-subscriptions", func(r chi.Router) {
			r.Post("/", controllers.WebhookSubscriptionCreate(svcs.Webhooks, logg))
			r.Get("/", controllers.WebhookSubscriptionList(svcs.Webhooks, logg))
			r.Get("/{subscriptionID}", controllers.WebhookSubscriptionGet(svcs.Webhooks, logg))
			r.Put("/{subscriptionID}", controllers.WebhookSubscriptionUpdate(svcs.Webhooks, logg))
			r.Delete("/{subscriptionID}", controllers.WebhookSubscriptionDelete(svcs.Webhooks, logg))
		})
	})

	return r
}
