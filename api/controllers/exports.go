package controllers

import (
	"net/http"

	"github.com/stocklane-io/stocklane-backend/api/middleware"
	"github.com/stocklane-io/stocklane-backend/api/responses"
	"github.com/stocklane-io/stocklane-backend/api/validators"
	"github.com/stocklane-io/stocklane-backend/internal/exports"
	"github.com/stocklane-io/stocklane-backend/pkg/config"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
)

// ExportBatch pulls the next delta batch for a resource and advances the
// tenant's cursor. Each call hands out rows exactly once per cursor position,
// so callers drain by looping until has_more is false.
func ExportBatch(svc exports.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		resource, err := enums.ParseExportResource(r.URL.Query().Get("resource"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", cfg.Exports.BatchSize, 1, cfg.Exports.BatchSize)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		batch, err := svc.Export(ctx, middleware.TenantID(ctx), resource, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

// ExportCursor shows where a tenant's export stands for one resource.
func ExportCursor(svc exports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		resource, err := enums.ParseExportResource(r.URL.Query().Get("resource"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}
		cursor, err := svc.Cursor(ctx, middleware.TenantID(ctx), resource)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, cursor)
	}
}
