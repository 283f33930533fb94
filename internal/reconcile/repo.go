package reconcile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// KeyAggregate is one (store, variant) key's derived ledger state.
type KeyAggregate struct {
	StoreID   uuid.UUID
	VariantID uuid.UUID
	DeltaSum  int64
}

// Repository runs the grouped queries the drift checker needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// LedgerSums groups qty_delta sums for every key the tenant has entries for.
	LedgerSums(ctx context.Context, tenantID uuid.UUID) ([]KeyAggregate, error)
	// ActiveReservationSums groups active hold quantities per key.
	ActiveReservationSums(ctx context.Context, tenantID uuid.UUID) ([]KeyAggregate, error)
	LastBalance(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (int, bool, error)
	TenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reconcile repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LedgerSums(ctx context.Context, tenantID uuid.UUID) ([]KeyAggregate, error) {
	var rows []KeyAggregate
	err := r.db.WithContext(ctx).
		Model(&models.StockLedgerEntry{}).
		Where("tenant_id = ?", tenantID).
		Select("store_id, variant_id, SUM(qty_delta) AS delta_sum").
		Group("store_id, variant_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ActiveReservationSums(ctx context.Context, tenantID uuid.UUID) ([]KeyAggregate, error) {
	var rows []KeyAggregate
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("tenant_id = ? AND status = ?", tenantID, enums.ReservationStatusActive).
		Select("store_id, variant_id, SUM(quantity) AS delta_sum").
		Group("store_id, variant_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) LastBalance(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (int, bool, error) {
	var entry models.StockLedgerEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND variant_id = ?", tenantID, storeID, variantID).
		Order("sequence DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return entry.BalanceAfter, true, nil
}

func (r *repository) TenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Distinct("tenant_id").
		Pluck("tenant_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
