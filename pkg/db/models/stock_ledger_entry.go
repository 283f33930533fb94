package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// StockLedgerEntry records an immutable signed quantity movement for one
// (tenant, store, variant) key. Entries are never updated or deleted; the
// running sum of QtyDelta in Sequence order always equals BalanceAfter.
type StockLedgerEntry struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;index:idx_ledger_key,priority:1"`
	StoreID      uuid.UUID           `gorm:"column:store_id;type:uuid;not null;index:idx_ledger_key,priority:2"`
	VariantID    uuid.UUID           `gorm:"column:variant_id;type:uuid;not null;index:idx_ledger_key,priority:3"`
	QtyDelta     int                 `gorm:"column:qty_delta;not null"`
	BalanceAfter int                 `gorm:"column:balance_after;not null"`
	RefType      enums.LedgerRefType `gorm:"column:ref_type;type:ledger_ref_type_enum;not null"`
	RefID        *uuid.UUID          `gorm:"column:ref_id;type:uuid"`
	CreatedBy    uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	Sequence     int64               `gorm:"column:sequence;not null"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (StockLedgerEntry) TableName() string {
	return "stock_ledger_entries"
}
