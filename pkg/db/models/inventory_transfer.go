package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// InventoryTransfer moves stock between two stores of the same tenant.
type InventoryTransfer struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    uuid.UUID            `gorm:"column:tenant_id;type:uuid;not null;index"`
	FromStoreID uuid.UUID            `gorm:"column:from_store_id;type:uuid;not null"`
	ToStoreID   uuid.UUID            `gorm:"column:to_store_id;type:uuid;not null"`
	Status      enums.TransferStatus `gorm:"column:status;type:transfer_status_enum;not null"`
	CreatedBy   uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	SentAt      *time.Time           `gorm:"column:sent_at"`
	ReceivedAt  *time.Time           `gorm:"column:received_at"`
	CancelledAt *time.Time           `gorm:"column:cancelled_at"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`

	Lines []TransferLine `gorm:"foreignKey:TransferID"`
}

func (InventoryTransfer) TableName() string {
	return "inventory_transfers"
}

// TransferLine tracks one variant inside a transfer. QtyReceived never exceeds
// QtySent, and QtySent never exceeds Qty absent an explicit override.
type TransferLine struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransferID  uuid.UUID `gorm:"column:transfer_id;type:uuid;not null;index"`
	VariantID   uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	Qty         int       `gorm:"column:qty;not null"`
	QtySent     int       `gorm:"column:qty_sent;not null;default:0"`
	QtyReceived int       `gorm:"column:qty_received;not null;default:0"`
}

func (TransferLine) TableName() string {
	return "transfer_lines"
}

// Outstanding is the quantity still on the road for this line.
func (l TransferLine) Outstanding() int {
	return l.QtySent - l.QtyReceived
}
