package purchaseorders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/internal/ledger"
	"github.com/stocklane-io/stocklane-backend/pkg/db"
	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
	"github.com/stocklane-io/stocklane-backend/pkg/outbox"
	"github.com/stocklane-io/stocklane-backend/pkg/outbox/payloads"
)

// CreateInput describes a new purchase order.
type CreateInput struct {
	TenantID    uuid.UUID
	StoreID     uuid.UUID
	SupplierRef string
	Lines       []LineInput
	CreatedBy   uuid.UUID
}

// LineInput is one ordered variant with its agreed unit cost.
type LineInput struct {
	VariantID  uuid.UUID
	QtyOrdered int
	UnitCost   decimal.Decimal
}

// ReceiptInput books arriving supplier stock against a line.
type ReceiptInput struct {
	LineID uuid.UUID
	Qty    int
}

// Service manages inbound supplier stock.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error)
	Receive(ctx context.Context, tenantID, poID, actor uuid.UUID, receipts []ReceiptInput) (*models.PurchaseOrder, error)
	Cancel(ctx context.Context, tenantID, poID uuid.UUID) (*models.PurchaseOrder, error)
	Get(ctx context.Context, tenantID, poID uuid.UUID) (*models.PurchaseOrder, error)
}

type service struct {
	client    db.TxRunner
	repo      Repository
	ledgerSvc ledger.Service
	events    *outbox.Service
	logg      *logger.Logger
}

// NewService wires the purchase order service.
func NewService(client db.TxRunner, repo Repository, ledgerSvc ledger.Service, events *outbox.Service, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("purchase order repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{client: client, repo: repo, ledgerSvc: ledgerSvc, events: events, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error) {
	if input.TenantID == uuid.Nil || input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and store ids are required")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "created_by is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	for _, line := range input.Lines {
		if line.VariantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line variant id is required")
		}
		if line.QtyOrdered <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line qty_ordered must be positive")
		}
		if line.UnitCost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line unit_cost must not be negative")
		}
	}

	po := &models.PurchaseOrder{
		ID:          uuid.New(),
		TenantID:    input.TenantID,
		StoreID:     input.StoreID,
		SupplierRef: input.SupplierRef,
		Status:      enums.PurchaseOrderStatusOpen,
		CreatedBy:   input.CreatedBy,
	}
	for _, line := range input.Lines {
		po.Lines = append(po.Lines, models.PurchaseOrderLine{
			ID:              uuid.New(),
			PurchaseOrderID: po.ID,
			VariantID:       line.VariantID,
			QtyOrdered:      line.QtyOrdered,
			UnitCost:        line.UnitCost,
		})
	}

	if err := s.repo.Create(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// Receive books supplier stock into the store: one purchase_order_receipt
// entry per received line. Over-receipt beyond qty_ordered is rejected.
func (s *service) Receive(ctx context.Context, tenantID, poID, actor uuid.UUID, receipts []ReceiptInput) (*models.PurchaseOrder, error) {
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	if len(receipts) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one receipt is required")
	}

	var result *models.PurchaseOrder
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		po, err := repo.GetForUpdate(ctx, tenantID, poID)
		if err != nil {
			return err
		}
		if po == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("purchase order %s not found", poID))
		}
		if !po.Status.AcceptsReceipts() {
			return poStateError(po)
		}

		lineByID := make(map[uuid.UUID]*models.PurchaseOrderLine, len(po.Lines))
		for i := range po.Lines {
			lineByID[po.Lines[i].ID] = &po.Lines[i]
		}

		qtyByLine := map[uuid.UUID]int{}
		for _, receipt := range receipts {
			if receipt.Qty <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "receipt qty must be positive")
			}
			line, ok := lineByID[receipt.LineID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("line %s not part of purchase order %s", receipt.LineID, poID))
			}
			qtyByLine[receipt.LineID] += receipt.Qty
			if line.QtyReceived+qtyByLine[receipt.LineID] > line.QtyOrdered {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("receipt exceeds ordered quantity on line %s", receipt.LineID)).
					WithDetails(map[string]any{
						"line_id":      receipt.LineID.String(),
						"qty_ordered":  line.QtyOrdered,
						"qty_received": line.QtyReceived,
					})
			}
		}

		// Lines come back in variant order; post receipts in that order so
		// concurrent receives cannot deadlock on inventory row locks.
		for i := range po.Lines {
			line := &po.Lines[i]
			qty, ok := qtyByLine[line.ID]
			if !ok {
				continue
			}
			_, err := s.ledgerSvc.PostTx(ctx, tx, ledger.PostInput{
				TenantID:  tenantID,
				StoreID:   po.StoreID,
				VariantID: line.VariantID,
				QtyDelta:  qty,
				RefType:   enums.LedgerRefTypePurchaseOrderReceipt,
				RefID:     &po.ID,
				CreatedBy: actor,
			})
			if err != nil {
				return err
			}
			line.QtyReceived += qty
			if err := repo.SaveLine(ctx, line); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		complete := true
		for i := range po.Lines {
			if po.Lines[i].QtyReceived < po.Lines[i].QtyOrdered {
				complete = false
				break
			}
		}
		if complete {
			po.Status = enums.PurchaseOrderStatusReceived
			po.ReceivedAt = &now
		} else {
			po.Status = enums.PurchaseOrderStatusPartialReceived
		}
		if err := repo.Save(ctx, po); err != nil {
			return err
		}

		if s.events != nil {
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				TenantID:      tenantID,
				EventType:     enums.EventPurchaseOrderReceived,
				AggregateType: enums.AggregatePurchaseOrder,
				AggregateID:   po.ID,
				Data: payloads.PurchaseOrderReceivedEvent{
					PurchaseOrderID: po.ID,
					StoreID:         po.StoreID,
					Status:          po.Status,
					ReceivedAt:      now,
				},
			})
			if err != nil {
				return err
			}
		}
		result = po
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel closes the order to further receipts. Stock already booked stays
// booked; the ledger never unwinds a physical receipt.
func (s *service) Cancel(ctx context.Context, tenantID, poID uuid.UUID) (*models.PurchaseOrder, error) {
	var result *models.PurchaseOrder
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		po, err := repo.GetForUpdate(ctx, tenantID, poID)
		if err != nil {
			return err
		}
		if po == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("purchase order %s not found", poID))
		}
		if !po.Status.AcceptsReceipts() {
			return poStateError(po)
		}

		now := time.Now().UTC()
		po.Status = enums.PurchaseOrderStatusCancelled
		po.CancelledAt = &now
		if err := repo.Save(ctx, po); err != nil {
			return err
		}
		result = po
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, tenantID, poID uuid.UUID) (*models.PurchaseOrder, error) {
	if tenantID == uuid.Nil || poID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and purchase order ids are required")
	}
	po, err := s.repo.Get(ctx, tenantID, poID)
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("purchase order %s not found", poID))
	}
	return po, nil
}

func poStateError(po *models.PurchaseOrder) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("purchase order %s is %s and accepts no further changes", po.ID, po.Status)).
		WithDetails(map[string]any{
			"purchase_order_id": po.ID.String(),
			"status":            string(po.Status),
		})
}
