package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/api/controllers"
	"github.com/stocklane-io/stocklane-backend/internal/counts"
	"github.com/stocklane-io/stocklane-backend/internal/exports"
	"github.com/stocklane-io/stocklane-backend/internal/inventory"
	"github.com/stocklane-io/stocklane-backend/internal/ledger"
	"github.com/stocklane-io/stocklane-backend/internal/purchaseorders"
	"github.com/stocklane-io/stocklane-backend/internal/reconcile"
	"github.com/stocklane-io/stocklane-backend/internal/reservations"
	"github.com/stocklane-io/stocklane-backend/internal/transfers"
	"github.com/stocklane-io/stocklane-backend/internal/webhooks"
	"github.com/stocklane-io/stocklane-backend/pkg/config"
	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	"github.com/stocklane-io/stocklane-backend/pkg/logger"
	"github.com/stocklane-io/stocklane-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubInventoryService struct {
	availability func(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (*inventory.Availability, error)
}

func (s stubInventoryService) GetAvailability(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (*inventory.Availability, error) {
	if s.availability != nil {
		return s.availability(ctx, tenantID, storeID, variantID)
	}
	return &inventory.Availability{}, nil
}

func (s stubInventoryService) ListStoreAvailability(ctx context.Context, tenantID, storeID uuid.UUID) ([]inventory.Availability, error) {
	return nil, nil
}

type stubLedgerService struct{}

func (stubLedgerService) Post(ctx context.Context, input ledger.PostInput) (*models.StockLedgerEntry, error) {
	panic("unimplemented")
}

func (stubLedgerService) PostTx(ctx context.Context, tx *gorm.DB, input ledger.PostInput) (*models.StockLedgerEntry, error) {
	panic("unimplemented")
}

func (stubLedgerService) ListByKey(ctx context.Context, tenantID, storeID, variantID uuid.UUID, limit int, afterSequence int64) (*ledger.Page, error) {
	return &ledger.Page{}, nil
}

func (stubLedgerService) Search(ctx context.Context, tenantID uuid.UUID, filter ledger.EntryFilter, params pagination.Params) ([]models.StockLedgerEntry, string, error) {
	return nil, "", nil
}

type stubStoreService struct{}

func (stubStoreService) RequireActive(ctx context.Context, tenantID, storeID uuid.UUID) (*models.Store, error) {
	panic("unimplemented")
}

func (stubStoreService) AllowsNegativeStock(ctx context.Context, tenantID, storeID uuid.UUID) (bool, error) {
	return false, nil
}

type stubReservationService struct {
	reserve func(ctx context.Context, input reservations.ReserveInput) (*models.Reservation, error)
}

func (s stubReservationService) Reserve(ctx context.Context, input reservations.ReserveInput) (*models.Reservation, error) {
	if s.reserve != nil {
		return s.reserve(ctx, input)
	}
	return &models.Reservation{}, nil
}

func (stubReservationService) Commit(ctx context.Context, tenantID, reservationID, actor uuid.UUID) (*models.Reservation, error) {
	panic("unimplemented")
}

func (stubReservationService) Release(ctx context.Context, tenantID, reservationID, actor uuid.UUID) (*models.Reservation, error) {
	panic("unimplemented")
}

func (stubReservationService) Get(ctx context.Context, tenantID, reservationID uuid.UUID) (*models.Reservation, error) {
	return &models.Reservation{}, nil
}

type stubTransferService struct{}

func (stubTransferService) Create(ctx context.Context, input transfers.CreateInput) (*models.InventoryTransfer, error) {
	panic("unimplemented")
}

func (stubTransferService) Send(ctx context.Context, tenantID, transferID, actor uuid.UUID) (*models.InventoryTransfer, error) {
	panic("unimplemented")
}

func (stubTransferService) Receive(ctx context.Context, tenantID, transferID, actor uuid.UUID, receipts []transfers.ReceiptInput) (*models.InventoryTransfer, error) {
	panic("unimplemented")
}

func (stubTransferService) Cancel(ctx context.Context, tenantID, transferID, actor uuid.UUID) (*models.InventoryTransfer, error) {
	panic("unimplemented")
}

func (stubTransferService) Get(ctx context.Context, tenantID, transferID uuid.UUID) (*models.InventoryTransfer, error) {
	return &models.InventoryTransfer{}, nil
}

func (stubTransferService) List(ctx context.Context, tenantID uuid.UUID, status enums.TransferStatus, params pagination.Params) ([]models.InventoryTransfer, string, error) {
	return nil, "", nil
}

type stubCountService struct{}

func (stubCountService) Open(ctx context.Context, input counts.OpenInput) (*models.CountSession, error) {
	panic("unimplemented")
}

func (stubCountService) RecordCount(ctx context.Context, tenantID, sessionID, lineID uuid.UUID, countedQty int) (*models.CountLine, error) {
	panic("unimplemented")
}

func (stubCountService) Finalize(ctx context.Context, tenantID, sessionID, actor uuid.UUID) (*models.CountSession, error) {
	panic("unimplemented")
}

func (stubCountService) Cancel(ctx context.Context, tenantID, sessionID uuid.UUID) (*models.CountSession, error) {
	panic("unimplemented")
}

func (stubCountService) Get(ctx context.Context, tenantID, sessionID uuid.UUID) (*models.CountSession, error) {
	return &models.CountSession{}, nil
}

type stubPurchaseOrderService struct{}

func (stubPurchaseOrderService) Create(ctx context.Context, input purchaseorders.CreateInput) (*models.PurchaseOrder, error) {
	panic("unimplemented")
}

func (stubPurchaseOrderService) Receive(ctx context.Context, tenantID, poID, actor uuid.UUID, receipts []purchaseorders.ReceiptInput) (*models.PurchaseOrder, error) {
	panic("unimplemented")
}

func (stubPurchaseOrderService) Cancel(ctx context.Context, tenantID, poID uuid.UUID) (*models.PurchaseOrder, error) {
	panic("unimplemented")
}

func (stubPurchaseOrderService) Get(ctx context.Context, tenantID, poID uuid.UUID) (*models.PurchaseOrder, error) {
	return &models.PurchaseOrder{}, nil
}

type stubReconcileService struct{}

func (stubReconcileService) CheckTenant(ctx context.Context, tenantID uuid.UUID) (*reconcile.Report, error) {
	return &reconcile.Report{TenantID: tenantID}, nil
}

func (stubReconcileService) CheckAll(ctx context.Context) ([]reconcile.Report, error) {
	return nil, nil
}

type stubExportService struct{}

func (stubExportService) Export(ctx context.Context, tenantID uuid.UUID, resource enums.ExportResource, limit int) (*exports.Batch, error) {
	return &exports.Batch{Resource: resource}, nil
}

func (stubExportService) Cursor(ctx context.Context, tenantID uuid.UUID, resource enums.ExportResource) (*models.ExportCursor, error) {
	return &models.ExportCursor{}, nil
}

type stubSubscriptionService struct{}

func (stubSubscriptionService) Create(ctx context.Context, input webhooks.SubscriptionInput) (*models.WebhookSubscription, error) {
	panic("unimplemented")
}

func (stubSubscriptionService) Update(ctx context.Context, subID uuid.UUID, input webhooks.SubscriptionInput) (*models.WebhookSubscription, error) {
	panic("unimplemented")
}

func (stubSubscriptionService) Get(ctx context.Context, tenantID, subID uuid.UUID) (*models.WebhookSubscription, error) {
	return &models.WebhookSubscription{}, nil
}

func (stubSubscriptionService) List(ctx context.Context, tenantID uuid.UUID) ([]models.WebhookSubscription, error) {
	return nil, nil
}

func (stubSubscriptionService) Delete(ctx context.Context, tenantID, subID uuid.UUID) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Env: "test", Port: "0"},
		Exports: config.ExportsConfig{BatchSize: 100},
	}
}

func newTestRouter(cfg *config.Config, svcs Services) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	readiness := map[string]controllers.Pinger{"database": stubPinger{}, "redis": stubPinger{}}
	return NewRouter(cfg, logg, readiness, svcs)
}

func testServices() Services {
	return Services{
		Inventory:      stubInventoryService{},
		Ledger:         stubLedgerService{},
		Stores:         stubStoreService{},
		Reservations:   stubReservationService{},
		Transfers:      stubTransferService{},
		Counts:         stubCountService{},
		PurchaseOrders: stubPurchaseOrderService{},
		Reconcile:      stubReconcileService{},
		Exports:        stubExportService{},
		Webhooks:       stubSubscriptionService{},
	}
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), testServices())

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for live probe got %d", resp.Code)
	}
	if env := resp.Header().Get("X-Stocklane-Env"); env != "test" {
		t.Fatalf("expected env header test got %q", env)
	}
}

func TestHealthReady(t *testing.T) {
	router := newTestRouter(testConfig(), testServices())

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for ready probe got %d", resp.Code)
	}
}

func TestTenantHeaderRequired(t *testing.T) {
	router := newTestRouter(testConfig(), testServices())

	storeID := uuid.NewString()
	variantID := uuid.NewString()

	missing := httptest.NewRequest(http.MethodGet, "/api/v1/stores/"+storeID+"/availability/"+variantID, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, missing)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without tenant header got %d", resp.Code)
	}

	malformed := httptest.NewRequest(http.MethodGet, "/api/v1/stores/"+storeID+"/availability/"+variantID, nil)
	malformed.Header.Set("X-Tenant-Id", "not-a-uuid")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, malformed)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed tenant header got %d", resp.Code)
	}
}

func TestAvailabilityRouting(t *testing.T) {
	tenantID := uuid.New()
	storeID := uuid.New()
	variantID := uuid.New()

	svcs := testServices()
	svcs.Inventory = stubInventoryService{
		availability: func(ctx context.Context, gotTenant, gotStore, gotVariant uuid.UUID) (*inventory.Availability, error) {
			if gotTenant != tenantID || gotStore != storeID || gotVariant != variantID {
				t.Fatalf("availability called with wrong ids")
			}
			return &inventory.Availability{
				TenantID:  gotTenant,
				StoreID:   gotStore,
				VariantID: gotVariant,
				OnHand:    12,
				Reserved:  2,
				Available: 10,
			}, nil
		},
	}
	router := newTestRouter(testConfig(), svcs)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stores/"+storeID.String()+"/availability/"+variantID.String(), nil)
	req.Header.Set("X-Tenant-Id", tenantID.String())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for availability got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data inventory.Availability `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Available != 10 {
		t.Fatalf("expected available 10 got %d", envelope.Data.Available)
	}
}

func TestReservationCreateRequiresActor(t *testing.T) {
	router := newTestRouter(testConfig(), testServices())

	body := `{"store_id":"` + uuid.NewString() + `","variant_id":"` + uuid.NewString() + `","quantity":2,"channel":"web"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without actor header got %d", resp.Code)
	}

	withActor := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body))
	withActor.Header.Set("Content-Type", "application/json")
	withActor.Header.Set("X-Tenant-Id", uuid.NewString())
	withActor.Header.Set("X-Actor-Id", uuid.NewString())
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, withActor)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 with actor header got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestReservationCreateRejectsUnknownChannel(t *testing.T) {
	router := newTestRouter(testConfig(), testServices())

	body := `{"store_id":"` + uuid.NewString() + `","variant_id":"` + uuid.NewString() + `","quantity":2,"channel":"carrier-pigeon"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", uuid.NewString())
	req.Header.Set("X-Actor-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown channel got %d", resp.Code)
	}
}

func TestExportBatchRejectsUnknownResource(t *testing.T) {
	router := newTestRouter(testConfig(), testServices())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exports/batch?resource=unicorns", nil)
	req.Header.Set("X-Tenant-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown resource got %d", resp.Code)
	}
}

func TestMetricsExposed(t *testing.T) {
	router := newTestRouter(testConfig(), testServices())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}
