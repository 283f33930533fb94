package enums

import "fmt"

// WebhookDeliveryStatus maps to the webhook_delivery_status_enum enum in Postgres.
type WebhookDeliveryStatus string

const (
	WebhookDeliveryStatusPending   WebhookDeliveryStatus = "pending"
	WebhookDeliveryStatusDelivered WebhookDeliveryStatus = "delivered"
	WebhookDeliveryStatusFailed    WebhookDeliveryStatus = "failed"
)

var validWebhookDeliveryStatuses = []WebhookDeliveryStatus{
	WebhookDeliveryStatusPending,
	WebhookDeliveryStatusDelivered,
	WebhookDeliveryStatusFailed,
}

// IsValid reports whether the value matches the canonical delivery enum.
func (s WebhookDeliveryStatus) IsValid() bool {
	for _, candidate := range validWebhookDeliveryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseWebhookDeliveryStatus converts raw input into WebhookDeliveryStatus.
func ParseWebhookDeliveryStatus(value string) (WebhookDeliveryStatus, error) {
	for _, candidate := range validWebhookDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook delivery status %q", value)
}
