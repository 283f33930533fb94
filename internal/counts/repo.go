package counts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// Repository manages count sessions and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, session *models.CountSession) error
	Get(ctx context.Context, tenantID, sessionID uuid.UUID) (*models.CountSession, error)
	GetForUpdate(ctx context.Context, tenantID, sessionID uuid.UUID) (*models.CountSession, error)
	Save(ctx context.Context, session *models.CountSession) error
	SaveLine(ctx context.Context, line *models.CountLine) error
	ListByStore(ctx context.Context, tenantID, storeID uuid.UUID) ([]models.CountSession, error)
	HasOpenSession(ctx context.Context, tenantID, storeID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a count repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, session *models.CountSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) Get(ctx context.Context, tenantID, sessionID uuid.UUID) (*models.CountSession, error) {
	var session models.CountSession
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND id = ?", tenantID, sessionID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) GetForUpdate(ctx context.Context, tenantID, sessionID uuid.UUID) (*models.CountSession, error) {
	q := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, sessionID)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var session models.CountSession
	err := q.First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Where("session_id = ?", session.ID).
		Order("variant_id ASC").
		Find(&session.Lines).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) Save(ctx context.Context, session *models.CountSession) error {
	return r.db.WithContext(ctx).
		Model(&models.CountSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]any{
			"status":       session.Status,
			"finalized_at": session.FinalizedAt,
			"cancelled_at": session.CancelledAt,
		}).Error
}

func (r *repository) SaveLine(ctx context.Context, line *models.CountLine) error {
	return r.db.WithContext(ctx).
		Model(&models.CountLine{}).
		Where("id = ?", line.ID).
		Update("counted_qty", line.CountedQty).Error
}

func (r *repository) ListByStore(ctx context.Context, tenantID, storeID uuid.UUID) ([]models.CountSession, error) {
	var sessions []models.CountSession
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND store_id = ?", tenantID, storeID).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repository) HasOpenSession(ctx context.Context, tenantID, storeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CountSession{}).
		Where("tenant_id = ? AND store_id = ? AND status = ?", tenantID, storeID, enums.CountSessionStatusOpen).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
