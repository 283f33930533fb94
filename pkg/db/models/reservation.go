package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// Reservation is a soft allocation of stock to a sales channel. An active
// reservation raises InventoryItem.Reserved without touching the ledger;
// committing or releasing it is what posts a ledger entry.
type Reservation struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    uuid.UUID                `gorm:"column:tenant_id;type:uuid;not null;index"`
	StoreID     uuid.UUID                `gorm:"column:store_id;type:uuid;not null"`
	VariantID   uuid.UUID                `gorm:"column:variant_id;type:uuid;not null"`
	Quantity    int                      `gorm:"column:quantity;not null"`
	Status      enums.ReservationStatus  `gorm:"column:status;type:reservation_status_enum;not null"`
	RefType     string                   `gorm:"column:ref_type"`
	RefID       *uuid.UUID               `gorm:"column:ref_id;type:uuid"`
	Channel     enums.ReservationChannel `gorm:"column:channel;type:reservation_channel_enum;not null"`
	CreatedBy   uuid.UUID                `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
	CommittedAt *time.Time               `gorm:"column:committed_at"`
	ReleasedAt  *time.Time               `gorm:"column:released_at"`
}

func (Reservation) TableName() string {
	return "reservations"
}
