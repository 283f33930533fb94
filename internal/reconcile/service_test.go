package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stocklane-io/stocklane-backend/internal/inventory"
	"github.com/stocklane-io/stocklane-backend/pkg/db/models"
	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

func setupReconcileTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:reconcile_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		`CREATE TABLE IF NOT EXISTS reservations (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  status TEXT NOT NULL,
  ref_type TEXT,
  ref_id TEXT,
  channel TEXT NOT NULL,
  created_by TEXT NOT NULL,
  created_at DATETIME,
  committed_at DATETIME,
  released_at DATETIME
);`,
	} {
		if err := conn.Exec(ddl).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return conn
}

func newReconcileService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), inventory.NewRepository(conn), nil)
	if err != nil {
		t.Fatalf("reconcile service: %v", err)
	}
	return svc
}

func seedEntry(t *testing.T, conn *gorm.DB, tenantID, storeID, variantID uuid.UUID, seq int64, delta, balance int) {
	t.Helper()
	if err := conn.Create(&models.StockLedgerEntry{
		ID: uuid.New(), TenantID: tenantID, StoreID: storeID, VariantID: variantID,
		QtyDelta: delta, BalanceAfter: balance,
		RefType: enums.LedgerRefTypeAdjustment, CreatedBy: uuid.New(), Sequence: seq,
	}).Error; err != nil {
		t.Fatalf("seed entry: %v", err)
	}
}

func TestCheckTenantClean(t *testing.T) {
	conn := setupReconcileTestDB(t)
	svc := newReconcileService(t, conn)
	ctx := context.Background()

	tenantID, storeID, variantID := uuid.New(), uuid.New(), uuid.New()

	seedEntry(t, conn, tenantID, storeID, variantID, 1, 10, 10)
	seedEntry(t, conn, tenantID, storeID, variantID, 2, -3, 7)
	if err := conn.Create(&models.InventoryItem{
		TenantID: tenantID, StoreID: storeID, VariantID: variantID, OnHand: 7, Reserved: 2,
	}).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	if err := conn.Create(&models.Reservation{
		ID: uuid.New(), TenantID: tenantID, StoreID: storeID, VariantID: variantID,
		Quantity: 2, Status: enums.ReservationStatusActive,
		Channel: enums.ReservationChannelWeb, CreatedBy: uuid.New(),
	}).Error; err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	report, err := svc.CheckTenant(ctx, tenantID)
	if err != nil {
		t.Fatalf("CheckTenant error: %v", err)
	}
	if !report.Clean() {
		t.Fatalf("expected clean report, got %+v", report.Mismatches)
	}
	if report.CheckedKeys != 1 {
		t.Fatalf("expected 1 checked key, got %d", report.CheckedKeys)
	}
	if report.Err() != nil {
		t.Fatalf("clean report must have nil Err, got %v", report.Err())
	}
}

func TestCheckTenantDetectsDrift(t *testing.T) {
	conn := setupReconcileTestDB(t)
	svc := newReconcileService(t, conn)
	ctx := context.Background()

	tenantID, storeID := uuid.New(), uuid.New()
	variantA, variantB, variantC := uuid.New(), uuid.New(), uuid.New()

	// A: on_hand drifted away from both the sum and the last balance.
	seedEntry(t, conn, tenantID, storeID, variantA, 1, 10, 10)
	if err := conn.Create(&models.InventoryItem{
		TenantID: tenantID, StoreID: storeID, VariantID: variantA, OnHand: 8,
	}).Error; err != nil {
		t.Fatalf("seed item A: %v", err)
	}

	// B: reserved says 5 but no active reservation backs it.
	seedEntry(t, conn, tenantID, storeID, variantB, 1, 4, 4)
	if err := conn.Create(&models.InventoryItem{
		TenantID: tenantID, StoreID: storeID, VariantID: variantB, OnHand: 4, Reserved: 5,
	}).Error; err != nil {
		t.Fatalf("seed item B: %v", err)
	}

	// C: ledger entries exist but the aggregate row is missing entirely.
	seedEntry(t, conn, tenantID, storeID, variantC, 1, 6, 6)

	report, err := svc.CheckTenant(ctx, tenantID)
	if err != nil {
		t.Fatalf("CheckTenant error: %v", err)
	}
	if report.Clean() {
		t.Fatal("expected drift to be detected")
	}
	if report.CheckedKeys != 3 {
		t.Fatalf("expected 3 checked keys, got %d", report.CheckedKeys)
	}

	kinds := map[uuid.UUID][]MismatchKind{}
	for _, m := range report.Mismatches {
		kinds[m.VariantID] = append(kinds[m.VariantID], m.Kind)
	}

	hasKind := func(variantID uuid.UUID, kind MismatchKind) bool {
		for _, k := range kinds[variantID] {
			if k == kind {
				return true
			}
		}
		return false
	}

	if !hasKind(variantA, MismatchDeltaSum) || !hasKind(variantA, MismatchLastBalance) {
		t.Fatalf("variant A drift not fully reported: %v", kinds[variantA])
	}
	if !hasKind(variantB, MismatchReservations) {
		t.Fatalf("variant B hold drift not reported: %v", kinds[variantB])
	}
	if !hasKind(variantC, MismatchDeltaSum) || !hasKind(variantC, MismatchLastBalance) {
		t.Fatalf("variant C orphan ledger not reported: %v", kinds[variantC])
	}

	if report.Err() == nil {
		t.Fatal("drifted report must aggregate errors")
	}
}

// faultyBalanceRepo fails LastBalance reads for one variant so the sweep's
// keep-going behavior can be observed.
type faultyBalanceRepo struct {
	Repository
	failVariant uuid.UUID
}

func (r faultyBalanceRepo) LastBalance(ctx context.Context, tenantID, storeID, variantID uuid.UUID) (int, bool, error) {
	if variantID == r.failVariant {
		return 0, false, errors.New("balance read failed")
	}
	return r.Repository.LastBalance(ctx, tenantID, storeID, variantID)
}

func TestCheckTenantContinuesPastKeyFailure(t *testing.T) {
	conn := setupReconcileTestDB(t)
	ctx := context.Background()

	tenantID, storeID := uuid.New(), uuid.New()
	brokenVariant, driftedVariant := uuid.New(), uuid.New()

	seedEntry(t, conn, tenantID, storeID, brokenVariant, 1, 3, 3)
	if err := conn.Create(&models.InventoryItem{
		TenantID: tenantID, StoreID: storeID, VariantID: brokenVariant, OnHand: 3,
	}).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	seedEntry(t, conn, tenantID, storeID, driftedVariant, 1, 10, 10)
	if err := conn.Create(&models.InventoryItem{
		TenantID: tenantID, StoreID: storeID, VariantID: driftedVariant, OnHand: 8,
	}).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}

	repo := faultyBalanceRepo{Repository: NewRepository(conn), failVariant: brokenVariant}
	svc, err := NewService(repo, inventory.NewRepository(conn), nil)
	if err != nil {
		t.Fatalf("reconcile service: %v", err)
	}

	report, err := svc.CheckTenant(ctx, tenantID)
	if err == nil {
		t.Fatal("expected the failing key to surface in the returned error")
	}
	if report == nil {
		t.Fatal("a key failure must not discard the report")
	}
	if report.CheckedKeys != 2 {
		t.Fatalf("expected both keys checked, got %d", report.CheckedKeys)
	}

	// Drift on the healthy key must still be reported.
	found := false
	for _, m := range report.Mismatches {
		if m.VariantID == driftedVariant && m.Kind == MismatchDeltaSum {
			found = true
		}
	}
	if !found {
		t.Fatalf("drift on healthy key not reported: %+v", report.Mismatches)
	}

	// The whole sweep likewise completes for the remaining tenants.
	otherTenant, otherVariant := uuid.New(), uuid.New()
	seedEntry(t, conn, otherTenant, storeID, otherVariant, 1, 2, 2)
	if err := conn.Create(&models.InventoryItem{
		TenantID: otherTenant, StoreID: storeID, VariantID: otherVariant, OnHand: 2,
	}).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}

	reports, err := svc.CheckAll(ctx)
	if err == nil {
		t.Fatal("expected the failing tenant to surface in the returned error")
	}
	if len(reports) != 2 {
		t.Fatalf("expected reports for both tenants, got %d", len(reports))
	}
}

func TestCheckAll(t *testing.T) {
	conn := setupReconcileTestDB(t)
	svc := newReconcileService(t, conn)
	ctx := context.Background()

	tenantA, tenantB := uuid.New(), uuid.New()
	storeID := uuid.New()

	for _, tenantID := range []uuid.UUID{tenantA, tenantB} {
		variantID := uuid.New()
		seedEntry(t, conn, tenantID, storeID, variantID, 1, 2, 2)
		if err := conn.Create(&models.InventoryItem{
			TenantID: tenantID, StoreID: storeID, VariantID: variantID, OnHand: 2,
		}).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}

	reports, err := svc.CheckAll(ctx)
	if err != nil {
		t.Fatalf("CheckAll error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	for _, report := range reports {
		if !report.Clean() {
			t.Fatalf("expected clean report for %s: %+v", report.TenantID, report.Mismatches)
		}
	}
}
