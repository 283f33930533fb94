package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// ExportCursor remembers the last row handed to a tenant's delta export for
// one resource type, so repeated runs only stream new rows.
type ExportCursor struct {
	TenantID       uuid.UUID            `gorm:"column:tenant_id;type:uuid;primaryKey"`
	Resource       enums.ExportResource `gorm:"column:resource;primaryKey"`
	LastExportedID uuid.UUID            `gorm:"column:last_exported_id;type:uuid"`
	LastExportedAt time.Time            `gorm:"column:last_exported_at"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (ExportCursor) TableName() string {
	return "export_cursors"
}
