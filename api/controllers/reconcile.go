package controllers

import (
	"net/http"

	"github.com/stocklane-io/stocklane-backend/api/middleware"
	"github.com/stocklane-io/stocklane-backend/api/responses"
	"github.com/stocklane-io/stocklane-backend/internal/reconcile"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
)

// ReconcileRun checks the tenant's ledger against its aggregates on demand.
// The scheduled reconciler covers every tenant; this endpoint exists for
// support workflows that want an immediate answer.
func ReconcileRun(svc reconcile.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		report, err := svc.CheckTenant(ctx, middleware.TenantID(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
