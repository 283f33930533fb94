package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocklane-io/stocklane-backend/pkg/enums"
)

// StockChangedEvent is emitted for every committed ledger entry.
type StockChangedEvent struct {
	LedgerEntryID uuid.UUID           `json:"ledger_entry_id"`
	StoreID       uuid.UUID           `json:"store_id"`
	VariantID     uuid.UUID           `json:"variant_id"`
	QtyDelta      int                 `json:"qty_delta"`
	BalanceAfter  int                 `json:"balance_after"`
	RefType       enums.LedgerRefType `json:"ref_type"`
	RefID         *uuid.UUID          `json:"ref_id,omitempty"`
}

// TransferSentEvent signals stock departing the origin store.
type TransferSentEvent struct {
	TransferID  uuid.UUID `json:"transfer_id"`
	FromStoreID uuid.UUID `json:"from_store_id"`
	ToStoreID   uuid.UUID `json:"to_store_id"`
	LineCount   int       `json:"line_count"`
	SentAt      time.Time `json:"sent_at"`
}

// TransferReceivedEvent signals stock arriving, fully or partially.
type TransferReceivedEvent struct {
	TransferID uuid.UUID            `json:"transfer_id"`
	ToStoreID  uuid.UUID            `json:"to_store_id"`
	Status     enums.TransferStatus `json:"status"`
	ReceivedAt time.Time            `json:"received_at"`
}

// CountFinalizedEvent reports a finished cycle count and its total variance.
type CountFinalizedEvent struct {
	SessionID     uuid.UUID        `json:"session_id"`
	StoreID       uuid.UUID        `json:"store_id"`
	Scope         enums.CountScope `json:"scope"`
	ZoneName      string           `json:"zone_name,omitempty"`
	TotalVariance int              `json:"total_variance"`
	FinalizedAt   time.Time        `json:"finalized_at"`
}

// PurchaseOrderReceivedEvent reports supplier stock booked into a store.
type PurchaseOrderReceivedEvent struct {
	PurchaseOrderID uuid.UUID                 `json:"purchase_order_id"`
	StoreID         uuid.UUID                 `json:"store_id"`
	Status          enums.PurchaseOrderStatus `json:"status"`
	ReceivedAt      time.Time                 `json:"received_at"`
}
