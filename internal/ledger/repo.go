package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	"github.com/stocklane-io/stocklane-backend/pkg/pagination"
)

// EntryFilter narrows a tenant-wide entry search. Zero values leave that
// dimension unconstrained.
type EntryFilter struct {
	StoreID   uuid.UUID
	VariantID uuid.UUID
	RefType   enums.LedgerRefType
	From      time.Time
	To        time.Time
}

// Repository manages persistence for stock ledger entries. Entries are
// append-only: there is deliberately no update or delete surface here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.StockLedgerEntry) error
	MaxSequence(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (int64, error)
	ListByKey(ctx context.Context, tenantID, storeID, variantID uuid.UUID, limit int, afterSequence int64) ([]models.StockLedgerEntry, error)
	Search(ctx context.Context, tenantID uuid.UUID, filter EntryFilter, limit int, cursor *pagination.Cursor) ([]models.StockLedgerEntry, error)
	SumDeltas(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (int64, error)
	LastByKey(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (*models.StockLedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.StockLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// MaxSequence returns the highest sequence for the key, zero when the key has
// no entries. Callers must hold the key's inventory row lock so the next
// sequence cannot be claimed twice.
func (r *repository) MaxSequence(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).
		Model(&models.StockLedgerEntry{}).
		Where("tenant_id = ? AND store_id = ? AND variant_id = ?", tenantID, storeID, variantID).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

// ListByKey pages the key's history in sequence order. Sequence is the
// canonical ordering, so it doubles as the pagination cursor.
func (r *repository) ListByKey(ctx context.Context, tenantID, storeID, variantID uuid.UUID, limit int, afterSequence int64) ([]models.StockLedgerEntry, error) {
	q := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND variant_id = ?", tenantID, storeID, variantID)
	if afterSequence > 0 {
		q = q.Where("sequence > ?", afterSequence)
	}

	var entries []models.StockLedgerEntry
	if err := q.Order("sequence ASC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Search pages entries across the whole tenant, any combination of filters
// applied. Sequence only orders within one key, so the cursor here is the
// same created_at keyset the other tenant-wide listings use.
func (r *repository) Search(ctx context.Context, tenantID uuid.UUID, filter EntryFilter, limit int, cursor *pagination.Cursor) ([]models.StockLedgerEntry, error) {
	q := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.StoreID != uuid.Nil {
		q = q.Where("store_id = ?", filter.StoreID)
	}
	if filter.VariantID != uuid.Nil {
		q = q.Where("variant_id = ?", filter.VariantID)
	}
	if filter.RefType != "" {
		q = q.Where("ref_type = ?", filter.RefType)
	}
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at < ?", filter.To)
	}
	if cursor != nil {
		q = q.Where("created_at > ? OR (created_at = ? AND id > ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var entries []models.StockLedgerEntry
	if err := q.Order("created_at ASC, id ASC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) SumDeltas(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&models.StockLedgerEntry{}).
		Where("tenant_id = ? AND store_id = ? AND variant_id = ?", tenantID, storeID, variantID).
		Select("COALESCE(SUM(qty_delta), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *repository) LastByKey(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (*models.StockLedgerEntry, error) {
	var entry models.StockLedgerEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND store_id = ? AND variant_id = ?", tenantID, storeID, variantID).
		Order("sequence DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
