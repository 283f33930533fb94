package purchaseorders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/internal/inventory"
	"github.com/stocklane-io/stocklane-backend/internal/ledger"
	"github.com/stocklane-io/stocklane-backend/pkg/db"
	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
	"github.com/stocklane-io/stocklane-backend/pkg/outbox"
)

func setupPOTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:purchaseorders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS inventory_items (
  tenant_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  on_hand INTEGER NOT NULL DEFAULT 0,
  reserved INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME,
  PRIMARY KEY (tenant_id, store_id, variant_id)
);`,
		`CREATE TABLE IF NOT EXISTS stock_ledger_entries (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  qty_delta INTEGER NOT NULL,
  balance_after INTEGER NOT NULL,
  ref_type TEXT NOT NULL,
  ref_id TEXT,
  created_by TEXT NOT NULL,
  sequence INTEGER NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  tenant_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
		`CREATE TABLE IF NOT EXISTS purchase_orders (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  supplier_ref TEXT,
  status TEXT NOT NULL,
  created_by TEXT NOT NULL,
  received_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS purchase_order_lines (
  id TEXT PRIMARY KEY,
  purchase_order_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  qty_ordered INTEGER NOT NULL,
  qty_received INTEGER NOT NULL DEFAULT 0,
  unit_cost NUMERIC
);`,
	} {
		if err := conn.Exec(ddl).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return conn
}

func newPOService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	invRepo := inventory.NewRepository(conn)
	events := outbox.NewService(outbox.NewRepository(conn), nil)
	ledgerSvc, err := ledger.NewService(db.GormTxRunner{DB: conn}, ledger.NewRepository(conn), invRepo, events, nil)
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	svc, err := NewService(db.GormTxRunner{DB: conn}, NewRepository(conn), ledgerSvc, events, nil)
	if err != nil {
		t.Fatalf("purchase order service: %v", err)
	}
	return svc
}

func TestReceiveBooksStock(t *testing.T) {
	conn := setupPOTestDB(t)
	svc := newPOService(t, conn)
	ctx := context.Background()

	tenantID, storeID := uuid.New(), uuid.New()
	variantID := uuid.New()
	actor := uuid.New()

	po, err := svc.Create(ctx, CreateInput{
		TenantID:    tenantID,
		StoreID:     storeID,
		SupplierRef: "SUP-1001",
		Lines: []LineInput{
			{VariantID: variantID, QtyOrdered: 10, UnitCost: decimal.NewFromFloat(4.25)},
		},
		CreatedBy: actor,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if po.Status != enums.PurchaseOrderStatusOpen {
		t.Fatalf("expected open, got %s", po.Status)
	}

	partial, err := svc.Receive(ctx, tenantID, po.ID, actor, []ReceiptInput{
		{LineID: po.Lines[0].ID, Qty: 6},
	})
	if err != nil {
		t.Fatalf("partial Receive error: %v", err)
	}
	if partial.Status != enums.PurchaseOrderStatusPartialReceived {
		t.Fatalf("expected partial_received, got %s", partial.Status)
	}

	var item models.InventoryItem
	if err := conn.First(&item, "tenant_id = ? AND variant_id = ?", tenantID, variantID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	if item.OnHand != 6 {
		t.Fatalf("expected on-hand 6, got %d", item.OnHand)
	}

	done, err := svc.Receive(ctx, tenantID, po.ID, actor, []ReceiptInput{
		{LineID: po.Lines[0].ID, Qty: 4},
	})
	if err != nil {
		t.Fatalf("final Receive error: %v", err)
	}
	if done.Status != enums.PurchaseOrderStatusReceived || done.ReceivedAt == nil {
		t.Fatalf("unexpected final state: %+v", done)
	}

	var entry models.StockLedgerEntry
	if err := conn.First(&entry, "tenant_id = ? AND ref_type = ?", tenantID, enums.LedgerRefTypePurchaseOrderReceipt).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.RefID == nil || *entry.RefID != po.ID {
		t.Fatalf("entry must reference the purchase order: %+v", entry)
	}

	// Fully received orders reject more stock.
	if _, err := svc.Receive(ctx, tenantID, po.ID, actor, []ReceiptInput{
		{LineID: po.Lines[0].ID, Qty: 1},
	}); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestReceiveOverOrderedRejected(t *testing.T) {
	conn := setupPOTestDB(t)
	svc := newPOService(t, conn)
	ctx := context.Background()

	tenantID, storeID := uuid.New(), uuid.New()
	actor := uuid.New()

	po, err := svc.Create(ctx, CreateInput{
		TenantID:  tenantID,
		StoreID:   storeID,
		Lines:     []LineInput{{VariantID: uuid.New(), QtyOrdered: 3, UnitCost: decimal.NewFromInt(2)}},
		CreatedBy: actor,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, err := svc.Receive(ctx, tenantID, po.ID, actor, []ReceiptInput{
		{LineID: po.Lines[0].ID, Qty: 4},
	}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for over-receipt, got %v", err)
	}

	var count int64
	if err := conn.Model(&models.StockLedgerEntry{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected receipt must post nothing, got %d entries", count)
	}
}

func TestCancelStopsFurtherReceipts(t *testing.T) {
	conn := setupPOTestDB(t)
	svc := newPOService(t, conn)
	ctx := context.Background()

	tenantID, storeID := uuid.New(), uuid.New()
	actor := uuid.New()

	po, err := svc.Create(ctx, CreateInput{
		TenantID:  tenantID,
		StoreID:   storeID,
		Lines:     []LineInput{{VariantID: uuid.New(), QtyOrdered: 5, UnitCost: decimal.NewFromInt(1)}},
		CreatedBy: actor,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, tenantID, po.ID)
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if cancelled.Status != enums.PurchaseOrderStatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("unexpected cancelled state: %+v", cancelled)
	}

	if _, err := svc.Receive(ctx, tenantID, po.ID, actor, []ReceiptInput{
		{LineID: po.Lines[0].ID, Qty: 1},
	}); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict receiving a cancelled order, got %v", err)
	}
}
