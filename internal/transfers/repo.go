package transfers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	"github.com/stocklane-io/stocklane-backend/pkg/pagination"
)

// Repository manages inventory transfers and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, transfer *models.InventoryTransfer) error
	Get(ctx context.Context, tenantID, transferID uuid.UUID) (*models.InventoryTransfer, error)
	// GetForUpdate locks the transfer header on Postgres so concurrent
	// lifecycle calls on the same transfer serialize.
	GetForUpdate(ctx context.Context, tenantID, transferID uuid.UUID) (*models.InventoryTransfer, error)
	Save(ctx context.Context, transfer *models.InventoryTransfer) error
	SaveLine(ctx context.Context, line *models.TransferLine) error
	List(ctx context.Context, tenantID uuid.UUID, status enums.TransferStatus, limit int, cursor *pagination.Cursor) ([]models.InventoryTransfer, error)
	InboundOutstanding(ctx context.Context, tenantID, toStoreID, variantID uuid.UUID) (int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transfer repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, transfer *models.InventoryTransfer) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

func (r *repository) Get(ctx context.Context, tenantID, transferID uuid.UUID) (*models.InventoryTransfer, error) {
	var transfer models.InventoryTransfer
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND id = ?", tenantID, transferID).
		First(&transfer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *repository) GetForUpdate(ctx context.Context, tenantID, transferID uuid.UUID) (*models.InventoryTransfer, error) {
	q := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, transferID)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var transfer models.InventoryTransfer
	err := q.First(&transfer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Where("transfer_id = ?", transfer.ID).
		Order("variant_id ASC").
		Find(&transfer.Lines).Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *repository) Save(ctx context.Context, transfer *models.InventoryTransfer) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryTransfer{}).
		Where("id = ?", transfer.ID).
		Updates(map[string]any{
			"status":       transfer.Status,
			"sent_at":      transfer.SentAt,
			"received_at":  transfer.ReceivedAt,
			"cancelled_at": transfer.CancelledAt,
		}).Error
}

func (r *repository) SaveLine(ctx context.Context, line *models.TransferLine) error {
	return r.db.WithContext(ctx).
		Model(&models.TransferLine{}).
		Where("id = ?", line.ID).
		Updates(map[string]any{
			"qty_sent":     line.QtySent,
			"qty_received": line.QtyReceived,
		}).Error
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, status enums.TransferStatus, limit int, cursor *pagination.Cursor) ([]models.InventoryTransfer, error) {
	q := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ?", tenantID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if cursor != nil {
		q = q.Where("created_at > ? OR (created_at = ? AND id > ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var transfers []models.InventoryTransfer
	if err := q.Order("created_at ASC, id ASC").Limit(limit).Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

// InboundOutstanding sums stock on the road toward a store: sent but not yet
// received quantities on every transfer that has left its origin.
func (r *repository) InboundOutstanding(ctx context.Context, tenantID, toStoreID, variantID uuid.UUID) (int, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.TransferLine{}).
		Joins("JOIN inventory_transfers ON inventory_transfers.id = transfer_lines.transfer_id").
		Where("inventory_transfers.tenant_id = ? AND inventory_transfers.to_store_id = ?", tenantID, toStoreID).
		Where("inventory_transfers.status IN ?", []enums.TransferStatus{
			enums.TransferStatusSent,
			enums.TransferStatusInTransit,
			enums.TransferStatusPartialReceived,
		}).
		Where("transfer_lines.variant_id = ?", variantID).
		Select("COALESCE(SUM(transfer_lines.qty_sent - transfer_lines.qty_received), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return int(sum), nil
}
