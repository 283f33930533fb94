package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// WebhookDelivery is one at-least-once attempt stream for a single event to a
// single subscription. Failed attempts reschedule with exponential backoff
// until MaxAttempts, after which the row goes terminal.
type WebhookDelivery struct {
	ID             uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID uuid.UUID                   `gorm:"column:subscription_id;type:uuid;not null;index"`
	TenantID       uuid.UUID                   `gorm:"column:tenant_id;type:uuid;not null;index"`
	EventID        string                      `gorm:"column:event_id;not null"`
	EventType      enums.OutboxEventType       `gorm:"column:event_type;not null"`
	Payload        json.RawMessage             `gorm:"column:payload;type:jsonb;not null"`
	Signature      string                      `gorm:"column:signature;not null"`
	Status         enums.WebhookDeliveryStatus `gorm:"column:status;type:webhook_delivery_status_enum;not null"`
	AttemptCount   int                         `gorm:"column:attempt_count;not null;default:0"`
	NextRetryAt    *time.Time                  `gorm:"column:next_retry_at"`
	LastError      *string                     `gorm:"column:last_error"`
	DeliveredAt    *time.Time                  `gorm:"column:delivered_at"`
	CreatedAt      time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}
