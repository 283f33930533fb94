package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/api/middleware"
	"github.com/stocklane-io/stocklane-backend/api/responses"
	"github.com/stocklane-io/stocklane-backend/api/validators"
	"github.com/stocklane-io/stocklane-backend/internal/transfers"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
	"github.com/stocklane-io/stocklane-backend/pkg/pagination"
)

type transferCreateRequest struct {
	FromStoreID uuid.UUID             `json:"from_store_id" validate:"required"`
	ToStoreID   uuid.UUID             `json:"to_store_id" validate:"required"`
	Lines       []transferLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type transferLineRequest struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,gt=0"`
}

type transferReceiptRequest struct {
	Receipts []transferReceiptLine `json:"receipts" validate:"required,min=1,dive"`
}

type transferReceiptLine struct {
	LineID uuid.UUID `json:"line_id" validate:"required"`
	Qty    int       `json:"qty" validate:"required,gt=0"`
}

// TransferCreate drafts a stock transfer between two stores.
func TransferCreate(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req transferCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor := middleware.ActorID(ctx)
		if actor == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "a valid X-Actor-Id header is required"))
			return
		}

		input := transfers.CreateInput{
			TenantID:    middleware.TenantID(ctx),
			FromStoreID: req.FromStoreID,
			ToStoreID:   req.ToStoreID,
			CreatedBy:   actor,
		}
		for _, line := range req.Lines {
			input.Lines = append(input.Lines, transfers.LineInput{VariantID: line.VariantID, Qty: line.Qty})
		}

		transfer, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, transfer)
	}
}

// TransferSend deducts origin stock and puts the transfer on the road.
func TransferSend(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, actor, err := transferActionParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		transfer, err := svc.Send(ctx, middleware.TenantID(ctx), id, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, transfer)
	}
}

// TransferReceive books arriving quantities at the destination store.
func TransferReceive(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, actor, err := transferActionParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req transferReceiptRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		receipts := make([]transfers.ReceiptInput, 0, len(req.Receipts))
		for _, receipt := range req.Receipts {
			receipts = append(receipts, transfers.ReceiptInput{LineID: receipt.LineID, Qty: receipt.Qty})
		}
		transfer, err := svc.Receive(ctx, middleware.TenantID(ctx), id, actor, receipts)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, transfer)
	}
}

// TransferCancel aborts a transfer whose stock has not yet departed.
func TransferCancel(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, actor, err := transferActionParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		transfer, err := svc.Cancel(ctx, middleware.TenantID(ctx), id, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, transfer)
	}
}

// TransferGet fetches one transfer with its lines.
func TransferGet(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.PathUUID(r, "transferID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		transfer, err := svc.Get(ctx, middleware.TenantID(ctx), id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, transfer)
	}
}

// TransferList pages the tenant's transfers, optionally filtered by status.
func TransferList(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var status enums.TransferStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseTransferStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
				return
			}
			status = parsed
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, nextCursor, err := svc.List(ctx, middleware.TenantID(ctx), status, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"items":       items,
			"next_cursor": nextCursor,
		})
	}
}

func transferActionParams(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	id, err := validators.PathUUID(r, "transferID")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	actor := middleware.ActorID(r.Context())
	if actor == uuid.Nil {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid X-Actor-Id header is required")
	}
	return id, actor, nil
}
