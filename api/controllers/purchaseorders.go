package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stocklane-io/stocklane-backend/api/middleware"
	"github.com/stocklane-io/stocklane-backend/api/responses"
	"github.com/stocklane-io/stocklane-backend/api/validators"
	"github.com/stocklane-io/stocklane-backend/internal/purchaseorders"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
)

type purchaseOrderCreateRequest struct {
	StoreID     uuid.UUID                  `json:"store_id" validate:"required"`
	SupplierRef string                     `json:"supplier_ref,omitempty"`
	Lines       []purchaseOrderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type purchaseOrderLineRequest struct {
	VariantID  uuid.UUID       `json:"variant_id" validate:"required"`
	QtyOrdered int             `json:"qty_ordered" validate:"required,gt=0"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
}

type purchaseOrderReceiptRequest struct {
	Receipts []purchaseOrderReceiptLine `json:"receipts" validate:"required,min=1,dive"`
}

type purchaseOrderReceiptLine struct {
	LineID uuid.UUID `json:"line_id" validate:"required"`
	Qty    int       `json:"qty" validate:"required,gt=0"`
}

// PurchaseOrderCreate drafts an inbound supplier order.
func PurchaseOrderCreate(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req purchaseOrderCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor := middleware.ActorID(ctx)
		if actor == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "a valid X-Actor-Id header is required"))
			return
		}

		input := purchaseorders.CreateInput{
			TenantID:    middleware.TenantID(ctx),
			StoreID:     req.StoreID,
			SupplierRef: req.SupplierRef,
			CreatedBy:   actor,
		}
		for _, line := range req.Lines {
			input.Lines = append(input.Lines, purchaseorders.LineInput{
				VariantID:  line.VariantID,
				QtyOrdered: line.QtyOrdered,
				UnitCost:   line.UnitCost,
			})
		}

		po, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, po)
	}
}

// PurchaseOrderReceive books arriving supplier stock against order lines.
func PurchaseOrderReceive(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		poID, err := validators.PathUUID(r, "poID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor := middleware.ActorID(ctx)
		if actor == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "a valid X-Actor-Id header is required"))
			return
		}
		var req purchaseOrderReceiptRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		receipts := make([]purchaseorders.ReceiptInput, 0, len(req.Receipts))
		for _, receipt := range req.Receipts {
			receipts = append(receipts, purchaseorders.ReceiptInput{LineID: receipt.LineID, Qty: receipt.Qty})
		}

		po, err := svc.Receive(ctx, middleware.TenantID(ctx), poID, actor, receipts)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, po)
	}
}

// PurchaseOrderCancel closes an order for further receiving. Stock already
// booked stays on hand.
func PurchaseOrderCancel(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		poID, err := validators.PathUUID(r, "poID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		po, err := svc.Cancel(ctx, middleware.TenantID(ctx), poID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, po)
	}
}

// PurchaseOrderGet fetches one order with its lines.
func PurchaseOrderGet(svc purchaseorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		poID, err := validators.PathUUID(r, "poID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		po, err := svc.Get(ctx, middleware.TenantID(ctx), poID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, po)
	}
}
