package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/pkg/config"
	"github.com/stocklane-io/stocklane-backend/pkg/db"
	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/db/types"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/outbox"
)

func setupWebhookTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:webhooks_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS webhook_subscriptions (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  url TEXT NOT NULL,
  secret TEXT NOT NULL,
  event_types TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  failure_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-4' || substr(lower(hex(randomblob(2))),2) || '-' || substr('89ab',abs(random())%4+1,1) || substr(lower(hex(randomblob(2))),2) || '-' || lower(hex(randomblob(6)))),
  subscription_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  payload TEXT NOT NULL,
  signature TEXT NOT NULL,
  status TEXT NOT NULL,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  next_retry_at DATETIME,
  last_error TEXT,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	} {
		if err := conn.Exec(ddl).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return conn
}

func seedSubscription(t *testing.T, conn *gorm.DB, tenantID uuid.UUID, url string, eventTypes ...string) *models.WebhookSubscription {
	t.Helper()
	sub := &models.WebhookSubscription{
		ID:         uuid.New(),
		TenantID:   tenantID,
		URL:        url,
		Secret:     "whsec_test",
		EventTypes: types.StringArray(eventTypes),
		Active:     true,
	}
	if err := conn.Create(sub).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return sub
}

func makeOutboxEvent(t *testing.T, tenantID uuid.UUID, eventType enums.OutboxEventType) models.OutboxEvent {
	t.Helper()
	envelope := outbox.EventEnvelope{
		Event:     eventType,
		Version:   1,
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
		Data:      json.RawMessage(`{"qty_delta":3}`),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		TenantID:      tenantID,
		EventType:     eventType,
		AggregateType: enums.AggregateLedgerEntry,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}

func TestSignRoundTrip(t *testing.T) {
	payload := []byte(`{"event":"inventory.stock_changed"}`)
	sig := Sign("whsec_test", payload)
	if !VerifySignature("whsec_test", payload, sig) {
		t.Fatal("signature must verify under the same secret")
	}
	if VerifySignature("other", payload, sig) {
		t.Fatal("signature must not verify under a different secret")
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc, err := NewSubscriptionService(NewSubscriptionRepository(conn), nil)
	if err != nil {
		t.Fatalf("subscription service: %v", err)
	}
	ctx := context.Background()
	tenantID := uuid.New()

	sub, err := svc.Create(ctx, SubscriptionInput{
		TenantID:   tenantID,
		URL:        "https://consumer.example.com/hooks",
		EventTypes: []string{string(enums.EventStockChanged), string(enums.EventTransferSent)},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if sub.Secret == "" {
		t.Fatal("an omitted secret must be generated")
	}
	if !sub.Active {
		t.Fatal("new subscriptions start active")
	}

	updated, err := svc.Update(ctx, sub.ID, SubscriptionInput{
		TenantID:   tenantID,
		URL:        "https://consumer.example.com/hooks/v2",
		EventTypes: []string{string(enums.EventStockChanged)},
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.Secret != sub.Secret {
		t.Fatal("update without a secret must keep the old one")
	}
	if len(updated.EventTypes) != 1 {
		t.Fatalf("unexpected event types: %v", updated.EventTypes)
	}

	if err := svc.Delete(ctx, tenantID, sub.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := svc.Get(ctx, tenantID, sub.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestSubscriptionValidation(t *testing.T) {
	conn := setupWebhookTestDB(t)
	svc, err := NewSubscriptionService(NewSubscriptionRepository(conn), nil)
	if err != nil {
		t.Fatalf("subscription service: %v", err)
	}
	ctx := context.Background()

	cases := []SubscriptionInput{
		{TenantID: uuid.New(), URL: "ftp://bad.example.com", EventTypes: []string{string(enums.EventStockChanged)}},
		{TenantID: uuid.New(), URL: "https://ok.example.com", EventTypes: nil},
		{TenantID: uuid.New(), URL: "https://ok.example.com", EventTypes: []string{"inventory.unknown"}},
		{TenantID: uuid.Nil, URL: "https://ok.example.com", EventTypes: []string{string(enums.EventStockChanged)}},
	}
	for i, input := range cases {
		if _, err := svc.Create(ctx, input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestFanoutMatchesEventTypes(t *testing.T) {
	conn := setupWebhookTestDB(t)
	fanout, err := NewFanout(NewSubscriptionRepository(conn), NewDeliveryRepository(conn), nil)
	if err != nil {
		t.Fatalf("fanout: %v", err)
	}
	ctx := context.Background()
	tenantID := uuid.New()

	matching := seedSubscription(t, conn, tenantID, "https://a.example.com", string(enums.EventStockChanged))
	seedSubscription(t, conn, tenantID, "https://b.example.com", string(enums.EventTransferSent))
	inactive := seedSubscription(t, conn, tenantID, "https://c.example.com", string(enums.EventStockChanged))
	if err := conn.Model(inactive).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	// Another tenant's subscription must never see this event.
	seedSubscription(t, conn, uuid.New(), "https://d.example.com", string(enums.EventStockChanged))

	event := makeOutboxEvent(t, tenantID, enums.EventStockChanged)
	created, err := fanout.Spread(ctx, conn, event)
	if err != nil {
		t.Fatalf("Spread error: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected exactly 1 delivery, got %d", created)
	}

	var delivery models.WebhookDelivery
	if err := conn.First(&delivery, "tenant_id = ?", tenantID).Error; err != nil {
		t.Fatalf("load delivery: %v", err)
	}
	if delivery.SubscriptionID != matching.ID {
		t.Fatalf("delivery bound to wrong subscription: %s", delivery.SubscriptionID)
	}
	if delivery.Status != enums.WebhookDeliveryStatusPending {
		t.Fatalf("new deliveries start pending, got %s", delivery.Status)
	}
	if !VerifySignature(matching.Secret, delivery.Payload, delivery.Signature) {
		t.Fatal("stored signature must cover the stored payload")
	}
}

func newWorker(t *testing.T, conn *gorm.DB, cfg config.WebhookConfig) *Worker {
	t.Helper()
	worker, err := NewWorker(
		db.GormTxRunner{DB: conn},
		NewDeliveryRepository(conn),
		NewSubscriptionRepository(conn),
		&http.Client{Timeout: 5 * time.Second},
		cfg,
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("worker: %v", err)
	}
	return worker
}

func TestWorkerDeliversAndSigns(t *testing.T) {
	conn := setupWebhookTestDB(t)
	ctx := context.Background()
	tenantID := uuid.New()

	var got atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get(HeaderSignature))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sub := seedSubscription(t, conn, tenantID, server.URL, string(enums.EventStockChanged))
	fanout, err := NewFanout(NewSubscriptionRepository(conn), NewDeliveryRepository(conn), nil)
	if err != nil {
		t.Fatalf("fanout: %v", err)
	}
	event := makeOutboxEvent(t, tenantID, enums.EventStockChanged)
	if _, err := fanout.Spread(ctx, conn, event); err != nil {
		t.Fatalf("Spread error: %v", err)
	}

	worker := newWorker(t, conn, config.WebhookConfig{BatchSize: 10, MaxAttempts: 3, InitialBackoff: time.Second})
	attempted, err := worker.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if attempted != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempted)
	}

	var delivery models.WebhookDelivery
	if err := conn.First(&delivery, "tenant_id = ?", tenantID).Error; err != nil {
		t.Fatalf("load delivery: %v", err)
	}
	if delivery.Status != enums.WebhookDeliveryStatusDelivered || delivery.DeliveredAt == nil {
		t.Fatalf("unexpected delivery state: %+v", delivery)
	}
	sig, _ := got.Load().(string)
	if !VerifySignature(sub.Secret, event.Payload, sig) {
		t.Fatal("request signature must verify under the subscription secret")
	}
}

func TestWorkerRetriesThenFails(t *testing.T) {
	conn := setupWebhookTestDB(t)
	ctx := context.Background()
	tenantID := uuid.New()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sub := seedSubscription(t, conn, tenantID, server.URL, string(enums.EventStockChanged))
	fanout, err := NewFanout(NewSubscriptionRepository(conn), NewDeliveryRepository(conn), nil)
	if err != nil {
		t.Fatalf("fanout: %v", err)
	}
	if _, err := fanout.Spread(ctx, conn, makeOutboxEvent(t, tenantID, enums.EventStockChanged)); err != nil {
		t.Fatalf("Spread error: %v", err)
	}

	worker := newWorker(t, conn, config.WebhookConfig{
		BatchSize:       10,
		MaxAttempts:     2,
		InitialBackoff:  time.Minute,
		MaxBackoff:      time.Hour,
		DisableAfterMax: true,
	})

	if _, err := worker.RunOnce(ctx); err != nil {
		t.Fatalf("first RunOnce error: %v", err)
	}
	var delivery models.WebhookDelivery
	if err := conn.First(&delivery, "tenant_id = ?", tenantID).Error; err != nil {
		t.Fatalf("load delivery: %v", err)
	}
	if delivery.Status != enums.WebhookDeliveryStatusPending || delivery.AttemptCount != 1 {
		t.Fatalf("expected pending retry after first failure: %+v", delivery)
	}
	if delivery.NextRetryAt == nil || !delivery.NextRetryAt.After(time.Now().UTC().Add(30*time.Second)) {
		t.Fatalf("retry must be scheduled with backoff, got %v", delivery.NextRetryAt)
	}

	// Not due yet, so a second pass attempts nothing.
	if attempted, err := worker.RunOnce(ctx); err != nil || attempted != 0 {
		t.Fatalf("expected idle pass, got attempted=%d err=%v", attempted, err)
	}

	// Force the retry due and exhaust the attempt budget.
	past := time.Now().UTC().Add(-time.Minute)
	if err := conn.Model(&models.WebhookDelivery{}).Where("id = ?", delivery.ID).
		Update("next_retry_at", past).Error; err != nil {
		t.Fatalf("force due: %v", err)
	}
	if _, err := worker.RunOnce(ctx); err != nil {
		t.Fatalf("second RunOnce error: %v", err)
	}

	if err := conn.First(&delivery, "id = ?", delivery.ID).Error; err != nil {
		t.Fatalf("reload delivery: %v", err)
	}
	if delivery.Status != enums.WebhookDeliveryStatusFailed || delivery.AttemptCount != 2 {
		t.Fatalf("expected terminal failure: %+v", delivery)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 HTTP attempts, got %d", hits.Load())
	}

	var reloaded models.WebhookSubscription
	if err := conn.First(&reloaded, "id = ?", sub.ID).Error; err != nil {
		t.Fatalf("reload subscription: %v", err)
	}
	if reloaded.Active || reloaded.FailureCount != 1 {
		t.Fatalf("exhausted endpoint must be disabled: %+v", reloaded)
	}
}

func TestWorkerBackoffCurve(t *testing.T) {
	worker := newWorker(t, setupWebhookTestDB(t), config.WebhookConfig{
		InitialBackoff: 30 * time.Second,
		MaxBackoff:     time.Hour,
	})
	steps := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{7, 32 * time.Minute},
		{8, time.Hour},
		{12, time.Hour},
	}
	for _, step := range steps {
		if got := worker.backoff(step.attempt); got != step.want {
			t.Fatalf("attempt %d: expected %v, got %v", step.attempt, step.want, got)
		}
	}
}
