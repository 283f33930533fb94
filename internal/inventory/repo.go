package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
)

// Repository manages the inventory_items aggregate rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (*models.InventoryItem, error)
	// LockForUpdate returns the row for the key, creating a zero row first if
	// none exists. On Postgres the row comes back locked FOR UPDATE, which is
	// what serializes all writers of one (tenant, store, variant) key.
	LockForUpdate(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (*models.InventoryItem, error)
	Save(ctx context.Context, item *models.InventoryItem) error
	ListByStore(ctx context.Context, tenantID, storeID uuid.UUID) ([]models.InventoryItem, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.InventoryItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND variant_id = ?", tenantID, storeID, variantID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) LockForUpdate(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (*models.InventoryItem, error) {
	seed := models.InventoryItem{TenantID: tenantID, StoreID: storeID, VariantID: variantID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND variant_id = ?", tenantID, storeID, variantID)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var item models.InventoryItem
	if err := q.First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) Save(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("tenant_id = ? AND store_id = ? AND variant_id = ?", item.TenantID, item.StoreID, item.VariantID).
		Updates(map[string]any{
			"on_hand":  item.OnHand,
			"reserved": item.Reserved,
		}).Error
}

func (r *repository) ListByStore(ctx context.Context, tenantID, storeID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ?", tenantID, storeID).
		Order("variant_id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("store_id ASC, variant_id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
