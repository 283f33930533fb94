package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/api/middleware"
	"github.com/stocklane-io/stocklane-backend/api/responses"
	"github.com/stocklane-io/stocklane-backend/api/validators"
	"github.com/stocklane-io/stocklane-backend/internal/counts"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
)

type countOpenRequest struct {
	StoreID    uuid.UUID   `json:"store_id" validate:"required"`
	Scope      string      `json:"scope" validate:"required"`
	ZoneName   string      `json:"zone_name,omitempty"`
	VariantIDs []uuid.UUID `json:"variant_ids,omitempty"`
}

type countRecordRequest struct {
	CountedQty *int `json:"counted_qty" validate:"required,min=0"`
}

// CountOpen starts a count session and snapshots expected quantities.
func CountOpen(svc counts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req countOpenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		scope, err := enums.ParseCountScope(req.Scope)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}
		actor := middleware.ActorID(ctx)
		if actor == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "a valid X-Actor-Id header is required"))
			return
		}

		session, err := svc.Open(ctx, counts.OpenInput{
			TenantID:   middleware.TenantID(ctx),
			StoreID:    req.StoreID,
			Scope:      scope,
			ZoneName:   req.ZoneName,
			VariantIDs: req.VariantIDs,
			CreatedBy:  actor,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// CountRecord stores the physically counted quantity on one line.
func CountRecord(svc counts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sessionID, err := validators.PathUUID(r, "sessionID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		lineID, err := validators.PathUUID(r, "lineID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req countRecordRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		line, err := svc.RecordCount(ctx, middleware.TenantID(ctx), sessionID, lineID, *req.CountedQty)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, line)
	}
}

// CountFinalize posts reconciling ledger entries for every counted variance.
func CountFinalize(svc counts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sessionID, err := validators.PathUUID(r, "sessionID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor := middleware.ActorID(ctx)
		if actor == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "a valid X-Actor-Id header is required"))
			return
		}

		session, err := svc.Finalize(ctx, middleware.TenantID(ctx), sessionID, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// CountCancel abandons an open session without touching stock.
func CountCancel(svc counts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sessionID, err := validators.PathUUID(r, "sessionID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		session, err := svc.Cancel(ctx, middleware.TenantID(ctx), sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// CountGet fetches one session with its lines.
func CountGet(svc counts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sessionID, err := validators.PathUUID(r, "sessionID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		session, err := svc.Get(ctx, middleware.TenantID(ctx), sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}
