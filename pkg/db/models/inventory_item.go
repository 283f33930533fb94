package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem is the mutable aggregate derived from the stock ledger. OnHand
// may go negative under backorders; Reserved never drops below zero. OnHand is
// only ever written in the same transaction as the ledger entry that moved it.
type InventoryItem struct {
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;primaryKey"`
	StoreID   uuid.UUID `gorm:"column:store_id;type:uuid;primaryKey"`
	VariantID uuid.UUID `gorm:"column:variant_id;type:uuid;primaryKey"`
	OnHand    int       `gorm:"column:on_hand;not null;default:0"`
	Reserved  int       `gorm:"column:reserved;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryItem) TableName() string {
	return "inventory_items"
}

// Available is the sellable quantity: on hand minus soft holds.
func (i InventoryItem) Available() int {
	return i.OnHand - i.Reserved
}
