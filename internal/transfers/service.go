package transfers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/internal/catalog"
	"github.com/stocklane-io/stocklane-backend/internal/ledger"
	"github.com/stocklane-io/stocklane-backend/internal/stores"
	"github.com/stocklane-io/stocklane-backend/pkg/db"
	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
	"github.com/stocklane-io/stocklane-backend/pkg/outbox"
	"github.com/stocklane-io/stocklane-backend/pkg/outbox/payloads"
	"github.com/stocklane-io/stocklane-backend/pkg/pagination"
)

// CreateInput describes a new draft transfer.
type CreateInput struct {
	TenantID    uuid.UUID
	FromStoreID uuid.UUID
	ToStoreID   uuid.UUID
	Lines       []LineInput
	CreatedBy   uuid.UUID
}

// LineInput is one requested variant quantity.
type LineInput struct {
	VariantID uuid.UUID
	Qty       int
}

// ReceiptInput records quantities arriving for existing lines.
type ReceiptInput struct {
	LineID uuid.UUID
	Qty    int
}

// Service drives the transfer lifecycle:
// draft -> in_transit -> partial_received -> received, with cancellation
// allowed only while no stock has left the origin.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.InventoryTransfer, error)
	Send(ctx context.Context, tenantID, transferID, actor uuid.UUID) (*models.InventoryTransfer, error)
	Receive(ctx context.Context, tenantID, transferID, actor uuid.UUID, receipts []ReceiptInput) (*models.InventoryTransfer, error)
	Cancel(ctx context.Context, tenantID, transferID, actor uuid.UUID) (*models.InventoryTransfer, error)
	Get(ctx context.Context, tenantID, transferID uuid.UUID) (*models.InventoryTransfer, error)
	List(ctx context.Context, tenantID uuid.UUID, status enums.TransferStatus, params pagination.Params) ([]models.InventoryTransfer, string, error)
}

type service struct {
	client     db.TxRunner
	repo       Repository
	ledgerSvc  ledger.Service
	storeSvc   stores.Service
	catalogSvc catalog.Service
	events     *outbox.Service
	logg       *logger.Logger
}

// NewService wires the transfer service.
func NewService(client db.TxRunner, repo Repository, ledgerSvc ledger.Service, storeSvc stores.Service, catalogSvc catalog.Service, events *outbox.Service, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("transfer repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{
		client:     client,
		repo:       repo,
		ledgerSvc:  ledgerSvc,
		storeSvc:   storeSvc,
		catalogSvc: catalogSvc,
		events:     events,
		logg:       logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.InventoryTransfer, error) {
	if input.TenantID == uuid.Nil || input.FromStoreID == uuid.Nil || input.ToStoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and both store ids are required")
	}
	if input.FromStoreID == input.ToStoreID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "origin and destination must differ")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "created_by is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	seen := map[uuid.UUID]bool{}
	variantIDs := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.VariantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line variant id is required")
		}
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line qty must be positive")
		}
		if seen[line.VariantID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("duplicate variant %s in lines", line.VariantID))
		}
		seen[line.VariantID] = true
		variantIDs = append(variantIDs, line.VariantID)
	}

	if s.storeSvc != nil {
		if _, err := s.storeSvc.RequireActive(ctx, input.TenantID, input.FromStoreID); err != nil {
			return nil, err
		}
		if _, err := s.storeSvc.RequireActive(ctx, input.TenantID, input.ToStoreID); err != nil {
			return nil, err
		}
	}
	if s.catalogSvc != nil {
		if _, err := s.catalogSvc.RequireActiveAll(ctx, input.TenantID, variantIDs); err != nil {
			return nil, err
		}
	}

	transfer := &models.InventoryTransfer{
		ID:          uuid.New(),
		TenantID:    input.TenantID,
		FromStoreID: input.FromStoreID,
		ToStoreID:   input.ToStoreID,
		Status:      enums.TransferStatusDraft,
		CreatedBy:   input.CreatedBy,
	}
	for _, line := range input.Lines {
		transfer.Lines = append(transfer.Lines, models.TransferLine{
			ID:         uuid.New(),
			TransferID: transfer.ID,
			VariantID:  line.VariantID,
			Qty:        line.Qty,
		})
	}

	if err := s.repo.Create(ctx, transfer); err != nil {
		return nil, err
	}
	return transfer, nil
}

// Send books the outbound side: one negative ledger entry per line at the
// origin, qty_sent snapshotting the dispatched quantity. The transfer lands
// in transit and is immediately receivable at the destination.
func (s *service) Send(ctx context.Context, tenantID, transferID, actor uuid.UUID) (*models.InventoryTransfer, error) {
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}

	var result *models.InventoryTransfer
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		transfer, err := s.lockTransfer(ctx, repo, tenantID, transferID)
		if err != nil {
			return err
		}
		if transfer.Status != enums.TransferStatusDraft {
			return transitionError(transfer, enums.TransferStatusInTransit)
		}

		allowNegative := false
		if s.storeSvc != nil {
			allowNegative, err = s.storeSvc.AllowsNegativeStock(ctx, tenantID, transfer.FromStoreID)
			if err != nil {
				return err
			}
		}

		// Lines come back ordered by variant id; ledger posts follow that
		// order so concurrent transfers over the same variants cannot
		// deadlock on inventory row locks.
		for i := range transfer.Lines {
			line := &transfer.Lines[i]
			_, err := s.ledgerSvc.PostTx(ctx, tx, ledger.PostInput{
				TenantID:      tenantID,
				StoreID:       transfer.FromStoreID,
				VariantID:     line.VariantID,
				QtyDelta:      -line.Qty,
				RefType:       enums.LedgerRefTypeTransferOut,
				RefID:         &transfer.ID,
				CreatedBy:     actor,
				AllowNegative: allowNegative,
			})
			if err != nil {
				return err
			}
			line.QtySent = line.Qty
			if err := repo.SaveLine(ctx, line); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		transfer.Status = enums.TransferStatusInTransit
		transfer.SentAt = &now
		if err := repo.Save(ctx, transfer); err != nil {
			return err
		}

		if s.events != nil {
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				TenantID:      tenantID,
				EventType:     enums.EventTransferSent,
				AggregateType: enums.AggregateTransfer,
				AggregateID:   transfer.ID,
				Data: payloads.TransferSentEvent{
					TransferID:  transfer.ID,
					FromStoreID: transfer.FromStoreID,
					ToStoreID:   transfer.ToStoreID,
					LineCount:   len(transfer.Lines),
					SentAt:      now,
				},
			})
			if err != nil {
				return err
			}
		}
		result = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Receive books arriving quantities against their lines. Partial receipts
// leave the transfer open; it closes once every line is fully received.
func (s *service) Receive(ctx context.Context, tenantID, transferID, actor uuid.UUID, receipts []ReceiptInput) (*models.InventoryTransfer, error) {
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}
	if len(receipts) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one receipt is required")
	}

	var result *models.InventoryTransfer
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		transfer, err := s.lockTransfer(ctx, repo, tenantID, transferID)
		if err != nil {
			return err
		}
		if !transfer.Status.IsOpenInbound() {
			return transitionError(transfer, enums.TransferStatusReceived)
		}

		lineByID := make(map[uuid.UUID]*models.TransferLine, len(transfer.Lines))
		for i := range transfer.Lines {
			lineByID[transfer.Lines[i].ID] = &transfer.Lines[i]
		}

		qtyByLine := map[uuid.UUID]int{}
		for _, receipt := range receipts {
			if receipt.Qty <= 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "receipt qty must be positive")
			}
			line, ok := lineByID[receipt.LineID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("line %s not part of transfer %s", receipt.LineID, transferID))
			}
			qtyByLine[receipt.LineID] += receipt.Qty
			if line.QtyReceived+qtyByLine[receipt.LineID] > line.QtySent {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("receipt exceeds outstanding quantity on line %s", receipt.LineID)).
					WithDetails(map[string]any{
						"line_id":     receipt.LineID.String(),
						"outstanding": line.Outstanding(),
					})
			}
		}

		// Post in variant order for the same deadlock-avoidance reason as Send.
		lineIDs := make([]uuid.UUID, 0, len(qtyByLine))
		for id := range qtyByLine {
			lineIDs = append(lineIDs, id)
		}
		sort.Slice(lineIDs, func(i, j int) bool {
			return lineByID[lineIDs[i]].VariantID.String() < lineByID[lineIDs[j]].VariantID.String()
		})

		for _, lineID := range lineIDs {
			line := lineByID[lineID]
			qty := qtyByLine[lineID]
			_, err := s.ledgerSvc.PostTx(ctx, tx, ledger.PostInput{
				TenantID:  tenantID,
				StoreID:   transfer.ToStoreID,
				VariantID: line.VariantID,
				QtyDelta:  qty,
				RefType:   enums.LedgerRefTypeTransferIn,
				RefID:     &transfer.ID,
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
		for i := range transfer.Lines {
			if transfer.Lines[i].Outstanding() > 0 {
				complete = false
				break
			}
		}
		if complete {
			transfer.Status = enums.TransferStatusReceived
			transfer.ReceivedAt = &now
		} else {
			transfer.Status = enums.TransferStatusPartialReceived
		}
		if err := repo.Save(ctx, transfer); err != nil {
			return err
		}

		if s.events != nil {
			err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				TenantID:      tenantID,
				EventType:     enums.EventTransferReceived,
				AggregateType: enums.AggregateTransfer,
				AggregateID:   transfer.ID,
				Data: payloads.TransferReceivedEvent{
					TransferID: transfer.ID,
					ToStoreID:  transfer.ToStoreID,
					Status:     transfer.Status,
					ReceivedAt: now,
				},
			})
			if err != nil {
				return err
			}
		}
		result = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel aborts a transfer before any stock has departed. Once an outbound
// entry exists the only remedy is receiving plus a manual adjustment, so
// cancellation of dispatched stock is refused rather than reversed.
func (s *service) Cancel(ctx context.Context, tenantID, transferID, actor uuid.UUID) (*models.InventoryTransfer, error) {
	if actor == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor is required")
	}

	var result *models.InventoryTransfer
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		transfer, err := s.lockTransfer(ctx, repo, tenantID, transferID)
		if err != nil {
			return err
		}
		if !transfer.Status.CanCancel() {
			return transitionError(transfer, enums.TransferStatusCancelled)
		}
		for i := range transfer.Lines {
			if transfer.Lines[i].QtySent > 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("transfer %s has dispatched stock and can no longer be cancelled", transfer.ID)).
					WithDetails(map[string]any{
						"transfer_id": transfer.ID.String(),
						"line_id":     transfer.Lines[i].ID.String(),
						"qty_sent":    transfer.Lines[i].QtySent,
					})
			}
		}

		now := time.Now().UTC()
		transfer.Status = enums.TransferStatusCancelled
		transfer.CancelledAt = &now
		if err := repo.Save(ctx, transfer); err != nil {
			return err
		}
		result = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, tenantID, transferID uuid.UUID) (*models.InventoryTransfer, error) {
	if tenantID == uuid.Nil || transferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and transfer ids are required")
	}
	transfer, err := s.repo.Get(ctx, tenantID, transferID)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("transfer %s not found", transferID))
	}
	return transfer, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, status enums.TransferStatus, params pagination.Params) ([]models.InventoryTransfer, string, error) {
	if tenantID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	if status != "" && !status.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	transfers, err := s.repo.List(ctx, tenantID, status, limit+1, cursor)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if len(transfers) > limit {
		transfers = transfers[:limit]
		last := transfers[limit-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return transfers, next, nil
}

func (s *service) lockTransfer(ctx context.Context, repo Repository, tenantID, transferID uuid.UUID) (*models.InventoryTransfer, error) {
	if tenantID == uuid.Nil || transferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant and transfer ids are required")
	}
	transfer, err := repo.GetForUpdate(ctx, tenantID, transferID)
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("transfer %s not found", transferID))
	}
	return transfer, nil
}

func transitionError(transfer *models.InventoryTransfer, target enums.TransferStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("transfer %s cannot move from %s to %s", transfer.ID, transfer.Status, target)).
		WithDetails(map[string]any{
			"transfer_id": transfer.ID.String(),
			"status":      string(transfer.Status),
			"target":      string(target),
		})
}
