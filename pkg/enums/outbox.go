package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateLedgerEntry   OutboxAggregateType = "ledger_entry"
	AggregateTransfer      OutboxAggregateType = "transfer"
	AggregateCountSession  OutboxAggregateType = "count_session"
	AggregatePurchaseOrder OutboxAggregateType = "purchase_order"
	AggregateReservation   OutboxAggregateType = "reservation"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateLedgerEntry,
	AggregateTransfer,
	AggregateCountSession,
	AggregatePurchaseOrder,
	AggregateReservation,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType is the namespaced, versioned domain event name delivered to
// webhook subscribers and the optional Pub/Sub sink.
type OutboxEventType string

const (
	EventStockChanged          OutboxEventType = "inventory.stock_changed"
	EventTransferSent          OutboxEventType = "inventory.transfer_sent"
	EventTransferReceived      OutboxEventType = "inventory.transfer_received"
	EventCountFinalized        OutboxEventType = "inventory.count_finalized"
	EventPurchaseOrderReceived OutboxEventType = "purchase_order.received"
)

var validOutboxEventTypes = []OutboxEventType{
	EventStockChanged,
	EventTransferSent,
	EventTransferReceived,
	EventCountFinalized,
	EventPurchaseOrderReceived,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// AllOutboxEventTypes returns the closed set of domain event names.
func AllOutboxEventTypes() []OutboxEventType {
	out := make([]OutboxEventType, len(validOutboxEventTypes))
	copy(out, validOutboxEventTypes)
	return out
}
