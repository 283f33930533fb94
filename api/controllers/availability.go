package controllers

import (
	"net/http"

	"github.com/stocklane-io/stocklane-backend/api/middleware"
	"github.com/stocklane-io/stocklane-backend/api/responses"
	"github.com/stocklane-io/stocklane-backend/api/validators"
	"github.com/stocklane-io/stocklane-backend/internal/inventory"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
)

// Availability returns the live availability view for one stock key.
func Availability(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		storeID, err := validators.PathUUID(r, "storeID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		variantID, err := validators.PathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		availability, err := svc.GetAvailability(ctx, middleware.TenantID(ctx), storeID, variantID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, availability)
	}
}

// StoreAvailability lists availability for every tracked variant in a store.
func StoreAvailability(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		storeID, err := validators.PathUUID(r, "storeID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := svc.ListStoreAvailability(ctx, middleware.TenantID(ctx), storeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
