package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// PurchaseOrder tracks inbound supplier stock for one store. Receiving a line
// posts a purchase_order_receipt ledger entry at the destination store.
type PurchaseOrder struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    uuid.UUID                 `gorm:"column:tenant_id;type:uuid;not null;index"`
	StoreID     uuid.UUID                 `gorm:"column:store_id;type:uuid;not null"`
	SupplierRef string                    `gorm:"column:supplier_ref"`
	Status      enums.PurchaseOrderStatus `gorm:"column:status;type:purchase_order_status_enum;not null"`
	CreatedBy   uuid.UUID                 `gorm:"column:created_by;type:uuid;not null"`
	ReceivedAt  *time.Time                `gorm:"column:received_at"`
	CancelledAt *time.Time                `gorm:"column:cancelled_at"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                 `gorm:"column:updated_at;autoUpdateTime"`

	Lines []PurchaseOrderLine `gorm:"foreignKey:PurchaseOrderID"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderLine carries ordered vs. received quantities plus the agreed
// unit cost for valuation. No tax or currency math happens here.
type PurchaseOrderLine struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseOrderID uuid.UUID       `gorm:"column:purchase_order_id;type:uuid;not null;index"`
	VariantID       uuid.UUID       `gorm:"column:variant_id;type:uuid;not null"`
	QtyOrdered      int             `gorm:"column:qty_ordered;not null"`
	QtyReceived     int             `gorm:"column:qty_received;not null;default:0"`
	UnitCost        decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,4)"`
}

func (PurchaseOrderLine) TableName() string {
	return "purchase_order_lines"
}
