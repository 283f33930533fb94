package webhooks

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
	"github.com/stocklane-io/stocklane-backend/pkg/outbox"
)

// Fanout turns one drained outbox event into delivery rows, one per active
// subscription whose event filter matches. It runs on the dispatcher's
// transaction so a crash never loses or duplicates a fan-out.
type Fanout struct {
	subs       SubscriptionRepository
	deliveries DeliveryRepository
	logg       *logger.Logger
}

// NewFanout wires the fan-out step.
func NewFanout(subs SubscriptionRepository, deliveries DeliveryRepository, logg *logger.Logger) (*Fanout, error) {
	if subs == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	return &Fanout{subs: subs, deliveries: deliveries, logg: logg}, nil
}

// Spread creates pending deliveries for the event. The signature is computed
// once per subscription over the exact payload bytes the worker will send.
func (f *Fanout) Spread(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (int, error) {
	var envelope outbox.EventEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return 0, fmt.Errorf("decoding event envelope: %w", err)
	}

	subs, err := f.subs.WithTx(tx).ListActiveByTenant(ctx, event.TenantID)
	if err != nil {
		return 0, err
	}

	var deliveries []models.WebhookDelivery
	for _, sub := range subs {
		if !sub.EventTypes.Contains(string(event.EventType)) {
			continue
		}
		deliveries = append(deliveries, models.WebhookDelivery{
			SubscriptionID: sub.ID,
			TenantID:       event.TenantID,
			EventID:        envelope.EventID,
			EventType:      event.EventType,
			Payload:        event.Payload,
			Signature:      Sign(sub.Secret, event.Payload),
			Status:         enums.WebhookDeliveryStatusPending,
		})
	}
	if err := f.deliveries.WithTx(tx).CreateBatch(ctx, deliveries); err != nil {
		return 0, err
	}

	if f.logg != nil && len(deliveries) > 0 {
		lctx := f.logg.WithTenantID(ctx, event.TenantID.String())
		lctx = f.logg.WithField(lctx, "event_type", string(event.EventType))
		f.logg.Info(f.logg.WithField(lctx, "deliveries", len(deliveries)), "webhook fan-out queued")
	}
	return len(deliveries), nil
}
