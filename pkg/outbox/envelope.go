package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// EventEnvelope is the stable payload structure stored in outbox_events and
// delivered verbatim to webhook subscribers. Consumers deduplicate on EventID
// plus the identifiers embedded in Data.
type EventEnvelope struct {
	Event     enums.OutboxEventType `json:"event"`
	Version   int                   `json:"version"`
	EventID   string                `json:"event_id"`
	Timestamp time.Time             `json:"timestamp"`
	TenantID  uuid.UUID             `json:"tenant_id"`
	Data      json.RawMessage       `json:"data"`
}
