package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/pkg/db/types"
)

// WebhookSubscription registers an external consumer for a tenant's domain
// events. The secret signs every delivery payload with HMAC-SHA256.
type WebhookSubscription struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index"`
	URL          string            `gorm:"column:url;not null"`
	Secret       string            `gorm:"column:secret;not null"`
	EventTypes   types.StringArray `gorm:"column:event_types;type:jsonb;not null"`
	Active       bool              `gorm:"column:active;not null;default:true"`
	FailureCount int               `gorm:"column:failure_count;not null;default:0"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (WebhookSubscription) TableName() string {
	return "webhook_subscriptions"
}
