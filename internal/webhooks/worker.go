package webhooks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/pkg/config"
	"github.com/stocklane-io/stocklane-backend/pkg/db"
	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
	"github.com/stocklane-io/stocklane-backend/pkg/metrics"
)

// Worker drains due webhook deliveries and POSTs them to subscribers.
// Delivery is at-least-once: a crash after the HTTP call but before the
// status update re-sends on the next pass, and consumers deduplicate on the
// envelope event_id.
type Worker struct {
	client     db.TxRunner
	deliveries DeliveryRepository
	subs       SubscriptionRepository
	httpClient *http.Client
	cfg        config.WebhookConfig
	stats      *metrics.WebhookMetrics
	logg       *logger.Logger
}

// NewWorker wires the delivery worker.
func NewWorker(
	client db.TxRunner,
	deliveries DeliveryRepository,
	subs SubscriptionRepository,
	httpClient *http.Client,
	cfg config.WebhookConfig,
	stats *metrics.WebhookMetrics,
	logg *logger.Logger,
) (*Worker, error) {
	if client == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deliveries == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	if subs == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Worker{
		client:     client,
		deliveries: deliveries,
		subs:       subs,
		httpClient: httpClient,
		cfg:        cfg,
		stats:      stats,
		logg:       logg,
	}, nil
}

// Run polls for due deliveries until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	interval := time.Duration(w.cfg.PollIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil && w.logg != nil {
				w.logg.Error(ctx, "webhook delivery pass failed", err)
			}
		}
	}
}

// RunOnce processes one batch of due deliveries and returns how many it
// attempted.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	attempted := 0
	err := w.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := w.deliveries.WithTx(tx)
		due, err := repo.Due(ctx, time.Now().UTC(), w.cfg.BatchSize)
		if err != nil {
			return err
		}
		for i := range due {
			attempted++
			if err := w.attempt(ctx, tx, &due[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return attempted, err
}

func (w *Worker) attempt(ctx context.Context, tx *gorm.DB, delivery *models.WebhookDelivery) error {
	sub, err := w.subs.WithTx(tx).Get(ctx, delivery.TenantID, delivery.SubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil || !sub.Active {
		// Endpoint unregistered while the delivery was in flight.
		delivery.Status = enums.WebhookDeliveryStatusFailed
		msg := "subscription inactive"
		delivery.LastError = &msg
		delivery.NextRetryAt = nil
		return w.deliveries.WithTx(tx).Save(ctx, delivery)
	}

	delivery.AttemptCount++
	sendErr := w.send(ctx, sub.URL, delivery)
	now := time.Now().UTC()

	if sendErr == nil {
		delivery.Status = enums.WebhookDeliveryStatusDelivered
		delivery.DeliveredAt = &now
		delivery.NextRetryAt = nil
		delivery.LastError = nil
		w.stats.IncDelivered(string(delivery.EventType))
		if sub.FailureCount != 0 {
			sub.FailureCount = 0
			if err := w.subs.WithTx(tx).Save(ctx, sub); err != nil {
				return err
			}
		}
		return w.deliveries.WithTx(tx).Save(ctx, delivery)
	}

	msg := sendErr.Error()
	delivery.LastError = &msg

	if delivery.AttemptCount >= w.cfg.MaxAttempts {
		delivery.Status = enums.WebhookDeliveryStatusFailed
		delivery.NextRetryAt = nil
		w.stats.IncFailed(string(delivery.EventType))

		sub.FailureCount++
		if w.cfg.DisableAfterMax {
			sub.Active = false
		}
		if err := w.subs.WithTx(tx).Save(ctx, sub); err != nil {
			return err
		}
		if w.logg != nil {
			lctx := w.logg.WithTenantID(ctx, delivery.TenantID.String())
			w.logg.Error(w.logg.WithField(lctx, "delivery_id", delivery.ID.String()),
				"webhook delivery exhausted", sendErr)
		}
	} else {
		retryAt := now.Add(w.backoff(delivery.AttemptCount))
		delivery.NextRetryAt = &retryAt
		w.stats.IncRetried(string(delivery.EventType))
	}
	return w.deliveries.WithTx(tx).Save(ctx, delivery)
}

func (w *Worker) send(ctx context.Context, endpoint string, delivery *models.WebhookDelivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(delivery.Payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, delivery.Signature)
	req.Header.Set(HeaderEvent, string(delivery.EventType))
	req.Header.Set(HeaderEventID, delivery.EventID)
	req.Header.Set(HeaderDelivery, delivery.ID.String())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("subscriber responded %d", resp.StatusCode)
	}
	return nil
}

// backoff doubles per attempt from the configured floor up to the ceiling.
func (w *Worker) backoff(attempt int) time.Duration {
	d := w.cfg.InitialBackoff
	if d <= 0 {
		d = 30 * time.Second
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if w.cfg.MaxBackoff > 0 && d >= w.cfg.MaxBackoff {
			return w.cfg.MaxBackoff
		}
	}
	return d
}
