package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/api/middleware"
	"github.com/stocklane-io/stocklane-backend/api/responses"
	"github.com/stocklane-io/stocklane-backend/api/validators"
	"github.com/stocklane-io/stocklane-backend/internal/reservations"
	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
)

type reserveRequest struct {
	StoreID   uuid.UUID  `json:"store_id" validate:"required"`
	VariantID uuid.UUID  `json:"variant_id" validate:"required"`
	Quantity  int        `json:"quantity" validate:"required,gt=0"`
	Channel   string     `json:"channel" validate:"required"`
	RefType   string     `json:"ref_type,omitempty"`
	RefID     *uuid.UUID `json:"ref_id,omitempty"`
}

// ReservationCreate places a soft hold on available stock.
func ReservationCreate(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req reserveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		channel, err := enums.ParseReservationChannel(req.Channel)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}
		actor := middleware.ActorID(ctx)
		if actor == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "a valid X-Actor-Id header is required"))
			return
		}

		reservation, err := svc.Reserve(ctx, reservations.ReserveInput{
			TenantID:  middleware.TenantID(ctx),
			StoreID:   req.StoreID,
			VariantID: req.VariantID,
			Quantity:  req.Quantity,
			Channel:   channel,
			RefType:   req.RefType,
			RefID:     req.RefID,
			CreatedBy: actor,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, reservation)
	}
}

// ReservationGet fetches one reservation.
func ReservationGet(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := validators.PathUUID(r, "reservationID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		reservation, err := svc.Get(ctx, middleware.TenantID(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, reservation)
	}
}

// ReservationCommit converts the hold into a real stock deduction.
func ReservationCommit(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationSettle(svc.Commit, logg)
}

// ReservationRelease frees the hold without touching on-hand stock.
func ReservationRelease(svc reservations.Service, logg *logger.Logger) http.HandlerFunc {
	return reservationSettle(svc.Release, logg)
}

func reservationSettle(
	settle func(ctx context.Context, tenantID, reservationID, actor uuid.UUID) (*models.Reservation, error),
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := validators.PathUUID(r, "reservationID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor := middleware.ActorID(ctx)
		if actor == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "a valid X-Actor-Id header is required"))
			return
		}
		reservation, err := settle(ctx, middleware.TenantID(ctx), id, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, reservation)
	}
}
