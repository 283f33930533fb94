package exports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// Repository reads export cursors and streams rows created after them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetCursorForUpdate(ctx context.Context, tenantID uuid.UUID, resource enums.ExportResource) (*models.ExportCursor, error)
	SaveCursor(ctx context.Context, cursor *models.ExportCursor) error
	LedgerEntriesAfter(ctx context.Context, tenantID uuid.UUID, after time.Time, afterID uuid.UUID, limit int) ([]models.StockLedgerEntry, error)
	TransfersAfter(ctx context.Context, tenantID uuid.UUID, after time.Time, afterID uuid.UUID, limit int) ([]models.InventoryTransfer, error)
	CountSessionsAfter(ctx context.Context, tenantID uuid.UUID, after time.Time, afterID uuid.UUID, limit int) ([]models.CountSession, error)
	PurchaseOrdersAfter(ctx context.Context, tenantID uuid.UUID, after time.Time, afterID uuid.UUID, limit int) ([]models.PurchaseOrder, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an export repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetCursorForUpdate(ctx context.Context, tenantID uuid.UUID, resource enums.ExportResource) (*models.ExportCursor, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var cursor models.ExportCursor
	err := query.
		Where("tenant_id = ? AND resource = ?", tenantID, resource).
		First(&cursor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cursor, nil
}

func (r *repository) SaveCursor(ctx context.Context, cursor *models.ExportCursor) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "resource"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_exported_id", "last_exported_at", "updated_at"}),
		}).
		Create(cursor).Error
}

// afterScope keeps the keyset predicate portable across dialects.
func afterScope(after time.Time, afterID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(query *gorm.DB) *gorm.DB {
		if after.IsZero() {
			return query
		}
		return query.Where("created_at > ? OR (created_at = ? AND id > ?)", after, after, afterID)
	}
}

func (r *repository) LedgerEntriesAfter(ctx context.Context, tenantID uuid.UUID, after time.Time, afterID uuid.UUID, limit int) ([]models.StockLedgerEntry, error) {
	var rows []models.StockLedgerEntry
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Scopes(afterScope(after, afterID)).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) TransfersAfter(ctx context.Context, tenantID uuid.UUID, after time.Time, afterID uuid.UUID, limit int) ([]models.InventoryTransfer, error) {
	var rows []models.InventoryTransfer
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ?", tenantID).
		Scopes(afterScope(after, afterID)).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountSessionsAfter(ctx context.Context, tenantID uuid.UUID, after time.Time, afterID uuid.UUID, limit int) ([]models.CountSession, error) {
	var rows []models.CountSession
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ?", tenantID).
		Scopes(afterScope(after, afterID)).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) PurchaseOrdersAfter(ctx context.Context, tenantID uuid.UUID, after time.Time, afterID uuid.UUID, limit int) ([]models.PurchaseOrder, error) {
	var rows []models.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ?", tenantID).
		Scopes(afterScope(after, afterID)).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
