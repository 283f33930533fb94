package counts

import (
	"context"
	"testing"

	"github.com/google/uuid"
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

func setupCountTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:counts_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		`CREATE TABLE IF NOT EXISTS count_sessions (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  status TEXT NOT NULL,
  scope TEXT NOT NULL,
  zone_name TEXT,
  created_by TEXT NOT NULL,
  finalized_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS count_lines (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  expected_qty INTEGER NOT NULL,
  counted_qty INTEGER
);`,
	} {
		if err := conn.Exec(ddl).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return conn
}

func newCountService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	invRepo := inventory.NewRepository(conn)
	events := outbox.NewService(outbox.NewRepository(conn), nil)
	ledgerSvc, err := ledger.NewService(db.GormTxRunner{DB: conn}, ledger.NewRepository(conn), invRepo, events, nil)
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	svc, err := NewService(db.GormTxRunner{DB: conn}, NewRepository(conn), invRepo, ledgerSvc, events, nil)
	if err != nil {
		t.Fatalf("count service: %v", err)
	}
	return svc
}

func TestOpenSnapshotsExpected(t *testing.T) {
	conn := setupCountTestDB(t)
	svc := newCountService(t, conn)
	ctx := context.Background()

	tenantID, storeID := uuid.New(), uuid.New()
	variantA, variantB := uuid.New(), uuid.New()

	for _, seed := range []models.InventoryItem{
		{TenantID: tenantID, StoreID: storeID, VariantID: variantA, OnHand: 12},
		{TenantID: tenantID, StoreID: storeID, VariantID: variantB, OnHand: 3},
	} {
		if err := conn.Create(&seed).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}

	session, err := svc.Open(ctx, OpenInput{
		TenantID:  tenantID,
		StoreID:   storeID,
		Scope:     enums.CountScopeFullStore,
		CreatedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if session.Status != enums.CountSessionStatusOpen {
		t.Fatalf("expected open session, got %s", session.Status)
	}
	if len(session.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(session.Lines))
	}

	expected := map[uuid.UUID]int{variantA: 12, variantB: 3}
	for _, line := range session.Lines {
		if line.ExpectedQty != expected[line.VariantID] {
			t.Fatalf("unexpected snapshot for %s: %d", line.VariantID, line.ExpectedQty)
		}
	}

	// Only one open session per store at a time.
	if _, err := svc.Open(ctx, OpenInput{
		TenantID:  tenantID,
		StoreID:   storeID,
		Scope:     enums.CountScopeFullStore,
		CreatedBy: uuid.New(),
	}); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for second open session, got %v", err)
	}
}

func TestFinalizePostsVariance(t *testing.T) {
	conn := setupCountTestDB(t)
	svc := newCountService(t, conn)
	ctx := context.Background()

	tenantID, storeID := uuid.New(), uuid.New()
	variantA, variantB, variantC := uuid.New(), uuid.New(), uuid.New()

	for _, seed := range []models.InventoryItem{
		{TenantID: tenantID, StoreID: storeID, VariantID: variantA, OnHand: 10},
		{TenantID: tenantID, StoreID: storeID, VariantID: variantB, OnHand: 5},
		{TenantID: tenantID, StoreID: storeID, VariantID: variantC, OnHand: 7},
	} {
		if err := conn.Create(&seed).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}

	session, err := svc.Open(ctx, OpenInput{
		TenantID:  tenantID,
		StoreID:   storeID,
		Scope:     enums.CountScopeFullStore,
		CreatedBy: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	lineFor := func(variantID uuid.UUID) models.CountLine {
		for _, line := range session.Lines {
			if line.VariantID == variantID {
				return line
			}
		}
		t.Fatalf("line for %s not found", variantID)
		return models.CountLine{}
	}

	// A short, B over, C left uncounted.
	if _, err := svc.RecordCount(ctx, tenantID, session.ID, lineFor(variantA).ID, 8); err != nil {
		t.Fatalf("RecordCount A: %v", err)
	}
	if _, err := svc.RecordCount(ctx, tenantID, session.ID, lineFor(variantB).ID, 6); err != nil {
		t.Fatalf("RecordCount B: %v", err)
	}

	actor := uuid.New()
	finalized, err := svc.Finalize(ctx, tenantID, session.ID, actor)
	if err != nil {
		t.Fatalf("Finalize error: %v", err)
	}
	if finalized.Status != enums.CountSessionStatusFinalized || finalized.FinalizedAt == nil {
		t.Fatalf("unexpected finalized state: %+v", finalized)
	}

	checkOnHand := func(variantID uuid.UUID, want int) {
		var item models.InventoryItem
		if err := conn.First(&item, "tenant_id = ? AND variant_id = ?", tenantID, variantID).Error; err != nil {
			t.Fatalf("load item %s: %v", variantID, err)
		}
		if item.OnHand != want {
			t.Fatalf("variant %s: expected on-hand %d, got %d", variantID, want, item.OnHand)
		}
	}
	checkOnHand(variantA, 8)
	checkOnHand(variantB, 6)
	checkOnHand(variantC, 7) // untouched

	var entries []models.StockLedgerEntry
	if err := conn.Where("tenant_id = ? AND ref_type = ?", tenantID, enums.LedgerRefTypeCountReconcile).
		Find(&entries).Error; err != nil {
		t.Fatalf("load entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 reconcile entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.RefID == nil || *entry.RefID != session.ID {
			t.Fatalf("entry must reference the session: %+v", entry)
		}
	}

	var event models.OutboxEvent
	if err := conn.First(&event, "tenant_id = ? AND event_type = ?", tenantID, enums.EventCountFinalized).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}

	// Terminal sessions reject further mutation.
	if _, err := svc.Finalize(ctx, tenantID, session.ID, actor); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict on double finalize, got %v", err)
	}
	if _, err := svc.RecordCount(ctx, tenantID, session.ID, lineFor(variantA).ID, 9); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict recording on finalized session, got %v", err)
	}
}

func TestZoneCountUnknownKeyExpectsZero(t *testing.T) {
	conn := setupCountTestDB(t)
	svc := newCountService(t, conn)
	ctx := context.Background()

	tenantID, storeID := uuid.New(), uuid.New()
	variantID := uuid.New()

	session, err := svc.Open(ctx, OpenInput{
		TenantID:   tenantID,
		StoreID:    storeID,
		Scope:      enums.CountScopeZone,
		ZoneName:   "backroom",
		VariantIDs: []uuid.UUID{variantID},
		CreatedBy:  uuid.New(),
	})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if len(session.Lines) != 1 || session.Lines[0].ExpectedQty != 0 {
		t.Fatalf("expected one zero-expected line, got %+v", session.Lines)
	}

	// Count finds 4 units the system never knew about.
	if _, err := svc.RecordCount(ctx, tenantID, session.ID, session.Lines[0].ID, 4); err != nil {
		t.Fatalf("RecordCount error: %v", err)
	}
	if _, err := svc.Finalize(ctx, tenantID, session.ID, uuid.New()); err != nil {
		t.Fatalf("Finalize error: %v", err)
	}

	var item models.InventoryItem
	if err := conn.First(&item, "tenant_id = ? AND variant_id = ?", tenantID, variantID).Error; err != nil {
		t.Fatalf("load item: %v", err)
	}
	if item.OnHand != 4 {
		t.Fatalf("expected on-hand 4 after reconcile, got %d", item.OnHand)
	}
}

func TestCancelSession(t *testing.T) {
	conn := setupCountTestDB(t)
	svc := newCountService(t, conn)
	ctx := context.Background()

	tenantID, storeID := uuid.New(), uuid.New()
	session, err := svc.Open(ctx, OpenInput{
		TenantID:   tenantID,
		StoreID:    storeID,
		Scope:      enums.CountScopeZone,
		ZoneName:   "floor",
		VariantIDs: []uuid.UUID{uuid.New()},
		CreatedBy:  uuid.New(),
	})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, tenantID, session.ID)
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if cancelled.Status != enums.CountSessionStatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("unexpected cancelled state: %+v", cancelled)
	}

	// Cancelled sessions post nothing.
	var count int64
	if err := conn.Model(&models.StockLedgerEntry{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no ledger entries, got %d", count)
	}
}
