package webhooks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
)

// SubscriptionRepository persists webhook subscriptions.
type SubscriptionRepository interface {
	WithTx(tx *gorm.DB) SubscriptionRepository
	Create(ctx context.Context, sub *models.WebhookSubscription) error
	Get(ctx context.Context, tenantID, subID uuid.UUID) (*models.WebhookSubscription, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.WebhookSubscription, error)
	// ListActiveByTenant returns every active subscription for fan-out; event
	// type matching happens in memory against the jsonb array.
	ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.WebhookSubscription, error)
	Save(ctx context.Context, sub *models.WebhookSubscription) error
	Delete(ctx context.Context, tenantID, subID uuid.UUID) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository returns a subscription repository bound to the provided database.
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) WithTx(tx *gorm.DB) SubscriptionRepository {
	if tx == nil {
		return r
	}
	return &subscriptionRepository{db: tx}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.WebhookSubscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *subscriptionRepository) Get(ctx context.Context, tenantID, subID uuid.UUID) (*models.WebhookSubscription, error) {
	var sub models.WebhookSubscription
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, subID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.WebhookSubscription, error) {
	var subs []models.WebhookSubscription
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.WebhookSubscription, error) {
	var subs []models.WebhookSubscription
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) Save(ctx context.Context, sub *models.WebhookSubscription) error {
	return r.db.WithContext(ctx).
		Model(&models.WebhookSubscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]any{
			"url":           sub.URL,
			"secret":        sub.Secret,
			"event_types":   sub.EventTypes,
			"active":        sub.Active,
			"failure_count": sub.FailureCount,
		}).Error
}

func (r *subscriptionRepository) Delete(ctx context.Context, tenantID, subID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, subID).
		Delete(&models.WebhookSubscription{}).Error
}
