package models

import (
	"time"

	"github.com/google/uuid"
)

// Store is a read model maintained by the platform's store service. The
// inventory core only consults existence, the active flag and the tenant's
// backorder policy.
type Store struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID          uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name              string    `gorm:"column:name;not null"`
	Active            bool      `gorm:"column:active;not null;default:true"`
	BackordersEnabled bool      `gorm:"column:backorders_enabled;not null;default:false"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Store) TableName() string {
	return "stores"
}
