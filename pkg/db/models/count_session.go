package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// CountSession scopes one physical count of a store or zone. Expected
// quantities are snapshotted when the session opens and never recomputed, so
// stock that moves mid-count shows up as variance on finalize.
type CountSession struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    uuid.UUID                `gorm:"column:tenant_id;type:uuid;not null;index"`
	StoreID     uuid.UUID                `gorm:"column:store_id;type:uuid;not null"`
	Status      enums.CountSessionStatus `gorm:"column:status;type:count_session_status_enum;not null"`
	Scope       enums.CountScope         `gorm:"column:scope;type:count_scope_enum;not null"`
	ZoneName    string                   `gorm:"column:zone_name"`
	CreatedBy   uuid.UUID                `gorm:"column:created_by;type:uuid;not null"`
	FinalizedAt *time.Time               `gorm:"column:finalized_at"`
	CancelledAt *time.Time               `gorm:"column:cancelled_at"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                `gorm:"column:updated_at;autoUpdateTime"`

	Lines []CountLine `gorm:"foreignKey:SessionID"`
}

func (CountSession) TableName() string {
	return "count_sessions"
}

// CountLine holds the expected snapshot and the physically counted quantity
// for one variant inside a session.
type CountLine struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID   uuid.UUID `gorm:"column:session_id;type:uuid;not null;index"`
	VariantID   uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	ExpectedQty int       `gorm:"column:expected_qty;not null"`
	CountedQty  *int      `gorm:"column:counted_qty"`
}

func (CountLine) TableName() string {
	return "count_lines"
}

// Variance is counted minus expected; zero when the line was never counted.
func (l CountLine) Variance() int {
	if l.CountedQty == nil {
		return 0
	}
	return *l.CountedQty - l.ExpectedQty
}
