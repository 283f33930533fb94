package controllers

import (
	"net/http"
	"strings"

	"github.com/stocklane-io/stocklane-backend/api/middleware"
	"github.com/stocklane-io/stocklane-backend/api/responses"
	"github.com/stocklane-io/stocklane-backend/api/validators"
	"github.com/stocklane-io/stocklane-backend/internal/ledger"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
	"github.com/stocklane-io/stocklane-backend/pkg/pagination"
)

// LedgerEntries streams one stock key's movement history in sequence order.
// Clients page forward with after_sequence from the previous response.
func LedgerEntries(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
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
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		afterSequence, err := validators.ParseQueryInt64(r, "after_sequence", 0)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.ListByKey(ctx, middleware.TenantID(ctx), storeID, variantID, limit, afterSequence)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// LedgerSearch pages the tenant's entries with optional store, variant,
// ref_type and time range filters.
func LedgerSearch(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var filter ledger.EntryFilter
		var err error
		if filter.StoreID, err = validators.QueryUUID(r, "store_id"); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if filter.VariantID, err = validators.QueryUUID(r, "variant_id"); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("ref_type")); raw != "" {
			filter.RefType = enums.LedgerRefType(raw)
		}
		if filter.From, err = validators.QueryTime(r, "from"); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if filter.To, err = validators.QueryTime(r, "to"); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		entries, nextCursor, err := svc.Search(ctx, middleware.TenantID(ctx), filter, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"items":       entries,
			"next_cursor": nextCursor,
		})
	}
}
