package exports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/pkg/db"
	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
	pkgerrors "github.com/stocklane-io/stocklane-backend/pkg/errors"
)

func setupExportTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:exports_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS export_cursors (
  tenant_id TEXT NOT NULL,
  resource TEXT NOT NULL,
  last_exported_id TEXT,
  last_exported_at DATETIME,
  updated_at DATETIME,
  PRIMARY KEY (tenant_id, resource)
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
		`CREATE TABLE IF NOT EXISTS inventory_transfers (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  from_store_id TEXT NOT NULL,
  to_store_id TEXT NOT NULL,
  status TEXT NOT NULL,
  created_by TEXT NOT NULL,
  sent_at DATETIME,
  received_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS transfer_lines (
  id TEXT PRIMARY KEY,
  transfer_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  qty INTEGER NOT NULL,
  qty_sent INTEGER NOT NULL DEFAULT 0,
  qty_received INTEGER NOT NULL DEFAULT 0
);`,
	} {
		if err := conn.Exec(ddl).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return conn
}

func newExportService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(db.GormTxRunner{DB: conn}, NewRepository(conn), nil)
	if err != nil {
		t.Fatalf("export service: %v", err)
	}
	return svc
}

func seedLedgerEntries(t *testing.T, conn *gorm.DB, tenantID uuid.UUID, n int, base time.Time) []uuid.UUID {
	t.Helper()
	storeID, variantID := uuid.New(), uuid.New()
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		entry := models.StockLedgerEntry{
			ID: uuid.New(), TenantID: tenantID, StoreID: storeID, VariantID: variantID,
			QtyDelta: 1, BalanceAfter: i + 1,
			RefType: enums.LedgerRefTypeAdjustment, CreatedBy: uuid.New(),
			Sequence: int64(i + 1), CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := conn.Create(&entry).Error; err != nil {
			t.Fatalf("seed entry: %v", err)
		}
		ids = append(ids, entry.ID)
	}
	return ids
}

func TestExportLedgerDelta(t *testing.T) {
	conn := setupExportTestDB(t)
	svc := newExportService(t, conn)
	ctx := context.Background()

	tenantID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	ids := seedLedgerEntries(t, conn, tenantID, 5, base)

	first, err := svc.Export(ctx, tenantID, enums.ExportResourceLedgerEntries, 3)
	if err != nil {
		t.Fatalf("first Export error: %v", err)
	}
	if first.Count != 3 || !first.HasMore {
		t.Fatalf("expected 3 rows with more pending, got count=%d more=%v", first.Count, first.HasMore)
	}
	if first.LedgerEntries[0].ID != ids[0] || first.LedgerEntries[2].ID != ids[2] {
		t.Fatalf("rows out of order: %+v", first.LedgerEntries)
	}

	second, err := svc.Export(ctx, tenantID, enums.ExportResourceLedgerEntries, 3)
	if err != nil {
		t.Fatalf("second Export error: %v", err)
	}
	if second.Count != 2 || second.HasMore {
		t.Fatalf("expected final 2 rows, got count=%d more=%v", second.Count, second.HasMore)
	}
	if second.LedgerEntries[0].ID != ids[3] {
		t.Fatalf("second page must resume after the cursor, got %s", second.LedgerEntries[0].ID)
	}

	third, err := svc.Export(ctx, tenantID, enums.ExportResourceLedgerEntries, 3)
	if err != nil {
		t.Fatalf("third Export error: %v", err)
	}
	if third.Count != 0 || third.HasMore {
		t.Fatalf("drained stream must return empty batch, got %+v", third)
	}

	var cursor models.ExportCursor
	if err := conn.First(&cursor, "tenant_id = ? AND resource = ?", tenantID, enums.ExportResourceLedgerEntries).Error; err != nil {
		t.Fatalf("load cursor: %v", err)
	}
	if cursor.LastExportedID != ids[4] {
		t.Fatalf("cursor must sit on the last row, got %s", cursor.LastExportedID)
	}
}

func TestExportNewRowsAfterDrain(t *testing.T) {
	conn := setupExportTestDB(t)
	svc := newExportService(t, conn)
	ctx := context.Background()

	tenantID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	seedLedgerEntries(t, conn, tenantID, 2, base)

	if _, err := svc.Export(ctx, tenantID, enums.ExportResourceLedgerEntries, 10); err != nil {
		t.Fatalf("drain Export error: %v", err)
	}

	lateIDs := seedLedgerEntries(t, conn, tenantID, 1, base.Add(time.Hour))

	batch, err := svc.Export(ctx, tenantID, enums.ExportResourceLedgerEntries, 10)
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if batch.Count != 1 || batch.LedgerEntries[0].ID != lateIDs[0] {
		t.Fatalf("expected only the late row, got %+v", batch.LedgerEntries)
	}
}

func TestExportTransfersWithLines(t *testing.T) {
	conn := setupExportTestDB(t)
	svc := newExportService(t, conn)
	ctx := context.Background()

	tenantID := uuid.New()
	transfer := models.InventoryTransfer{
		ID: uuid.New(), TenantID: tenantID,
		FromStoreID: uuid.New(), ToStoreID: uuid.New(),
		Status: enums.TransferStatusSent, CreatedBy: uuid.New(),
		CreatedAt: time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC),
	}
	if err := conn.Create(&transfer).Error; err != nil {
		t.Fatalf("seed transfer: %v", err)
	}
	if err := conn.Create(&models.TransferLine{
		ID: uuid.New(), TransferID: transfer.ID, VariantID: uuid.New(), Qty: 5, QtySent: 5,
	}).Error; err != nil {
		t.Fatalf("seed line: %v", err)
	}

	batch, err := svc.Export(ctx, tenantID, enums.ExportResourceTransfers, 10)
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if batch.Count != 1 {
		t.Fatalf("expected 1 transfer, got %d", batch.Count)
	}
	if len(batch.Transfers[0].Lines) != 1 {
		t.Fatalf("transfer lines must be included, got %+v", batch.Transfers[0])
	}
}

func TestExportValidation(t *testing.T) {
	conn := setupExportTestDB(t)
	svc := newExportService(t, conn)
	ctx := context.Background()

	if _, err := svc.Export(ctx, uuid.Nil, enums.ExportResourceLedgerEntries, 10); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for nil tenant, got %v", err)
	}
	if _, err := svc.Export(ctx, uuid.New(), enums.ExportResource("bogus"), 10); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad resource, got %v", err)
	}

	// An empty stream writes no cursor row.
	tenantID := uuid.New()
	if _, err := svc.Export(ctx, tenantID, enums.ExportResourceLedgerEntries, 10); err != nil {
		t.Fatalf("empty Export error: %v", err)
	}
	var count int64
	if err := conn.Model(&models.ExportCursor{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		t.Fatalf("count cursors: %v", err)
	}
	if count != 0 {
		t.Fatalf("empty export must not persist a cursor, got %d rows", count)
	}
}
