package webhooks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// DeliveryRepository persists the per-subscription attempt streams.
type DeliveryRepository interface {
	WithTx(tx *gorm.DB) DeliveryRepository
	CreateBatch(ctx context.Context, deliveries []models.WebhookDelivery) error
	// Due returns pending deliveries whose retry time has passed, oldest
	// first, locked for the worker's transaction.
	Due(ctx context.Context, now time.Time, limit int) ([]models.WebhookDelivery, error)
	Save(ctx context.Context, delivery *models.WebhookDelivery) error
	ListBySubscription(ctx context.Context, tenantID, subID uuid.UUID, limit int) ([]models.WebhookDelivery, error)
}

type deliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository returns a delivery repository bound to the provided database.
func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

func (r *deliveryRepository) WithTx(tx *gorm.DB) DeliveryRepository {
	if tx == nil {
		return r
	}
	return &deliveryRepository{db: tx}
}

func (r *deliveryRepository) CreateBatch(ctx context.Context, deliveries []models.WebhookDelivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&deliveries).Error
}

func (r *deliveryRepository) Due(ctx context.Context, now time.Time, limit int) ([]models.WebhookDelivery, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	var rows []models.WebhookDelivery
	err := query.
		Where("status = ?", enums.WebhookDeliveryStatusPending).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *deliveryRepository) Save(ctx context.Context, delivery *models.WebhookDelivery) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookDelivery{}).
		Where("id = ?", delivery.ID).
		Updates(map[string]any{
			"status":        delivery.Status,
			"attempt_count": delivery.AttemptCount,
			"next_retry_at": delivery.NextRetryAt,
			"last_error":    delivery.LastError,
			"delivered_at":  delivery.DeliveredAt,
		}).Error
}

func (r *deliveryRepository) ListBySubscription(ctx context.Context, tenantID, subID uuid.UUID, limit int) ([]models.WebhookDelivery, error) {
	var rows []models.WebhookDelivery
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND subscription_id = ?", tenantID, subID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
