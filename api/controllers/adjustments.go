package controllers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/api/middleware"
	"github.com/stocklane-io/stocklane-backend/api/responses"
	"github.com/stocklane-io/stocklane-backend/api/validators"
	"github.com/stocklane-io/stocklane-backend/internal/ledger"
	"github.com/stocklane-io/stocklane-backend/internal/stores"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
)

type adjustmentRequest struct {
	StoreID   uuid.UUID  `json:"store_id" validate:"required"`
	VariantID uuid.UUID  `json:"variant_id" validate:"required"`
	QtyDelta  int        `json:"qty_delta"`
	Reason    string     `json:"reason" validate:"required"`
	RefID     *uuid.UUID `json:"ref_id,omitempty"`
}

// Reasons a client may post directly. Everything else is reserved for the
// transfer, reservation, count and purchase order flows.
var manualAdjustmentReasons = map[enums.LedgerRefType]bool{
	enums.LedgerRefTypeAdjustment: true,
	enums.LedgerRefTypeSale:       true,
	enums.LedgerRefTypeReturn:     true,
	enums.LedgerRefTypeWaste:      true,
	enums.LedgerRefTypeBreakage:   true,
	enums.LedgerRefTypeShortage:   true,
}

// AdjustmentCreate posts a manual stock movement to the ledger. Whether the
// result may go negative follows the store's backorder policy.
func AdjustmentCreate(ledgerSvc ledger.Service, storeSvc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req adjustmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		refType, err := enums.ParseLedgerRefType(req.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}
		if !manualAdjustmentReasons[refType] {
			responses.WriteError(ctx, logg, w, pkgerrors.New(
				pkgerrors.CodeValidation,
				fmt.Sprintf("reason %q is posted by its own workflow", refType),
			))
			return
		}
		actor := middleware.ActorID(ctx)
		if actor == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "a valid X-Actor-Id header is required"))
			return
		}

		tenantID := middleware.TenantID(ctx)
		allowNegative, err := storeSvc.AllowsNegativeStock(ctx, tenantID, req.StoreID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		entry, err := ledgerSvc.Post(ctx, ledger.PostInput{
			TenantID:      tenantID,
			StoreID:       req.StoreID,
			VariantID:     req.VariantID,
			QtyDelta:      req.QtyDelta,
			RefType:       refType,
			RefID:         req.RefID,
			CreatedBy:     actor,
			AllowNegative: allowNegative,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}
