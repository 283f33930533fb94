package purchaseorders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// Repository manages purchase orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, po *models.PurchaseOrder) error
	Get(ctx context.Context, tenantID, poID uuid.UUID) (*models.PurchaseOrder, error)
	GetForUpdate(ctx context.Context, tenantID, poID uuid.UUID) (*models.PurchaseOrder, error)
	Save(ctx context.Context, po *models.PurchaseOrder) error
	SaveLine(ctx context.Context, line *models.PurchaseOrderLine) error
	ListByStore(ctx context.Context, tenantID, storeID uuid.UUID, status enums.PurchaseOrderStatus) ([]models.PurchaseOrder, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a purchase order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, po *models.PurchaseOrder) error {
	return r.db.WithContext(ctx).Create(po).Error
}

func (r *repository) Get(ctx context.Context, tenantID, poID uuid.UUID) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND id = ?", tenantID, poID).
		First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *repository) GetForUpdate(ctx context.Context, tenantID, poID uuid.UUID) (*models.PurchaseOrder, error) {
	q := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, poID)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var po models.PurchaseOrder
	err := q.First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", po.ID).
		Order("variant_id ASC").
		Find(&po.Lines).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *repository) Save(ctx context.Context, po *models.PurchaseOrder) error {
	return r.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Where("id = ?", po.ID).
		Updates(map[string]any{
			"status":       po.Status,
			"received_at":  po.ReceivedAt,
			"cancelled_at": po.CancelledAt,
		}).Error
}

func (r *repository) SaveLine(ctx context.Context, line *models.PurchaseOrderLine) error {
	return r.db.WithContext(ctx).
		Model(&models.PurchaseOrderLine{}).
		Where("id = ?", line.ID).
		Update("qty_received", line.QtyReceived).Error
}

func (r *repository) ListByStore(ctx context.Context, tenantID, storeID uuid.UUID, status enums.PurchaseOrderStatus) ([]models.PurchaseOrder, error) {
	q := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND store_id = ?", tenantID, storeID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var pos []models.PurchaseOrder
	if err := q.Order("created_at DESC").Find(&pos).Error; err != nil {
		return nil, err
	}
	return pos, nil
}
