package enums

import "fmt"

// TransferStatus maps to the transfer_status_enum enum in Postgres.
type TransferStatus string

const (
	TransferStatusDraft           TransferStatus = "draft"
	TransferStatusSent            TransferStatus = "sent"
	TransferStatusInTransit       TransferStatus = "in_transit"
	TransferStatusPartialReceived TransferStatus = "partial_received"
	TransferStatusReceived        TransferStatus = "received"
	TransferStatusCancelled       TransferStatus = "cancelled"
)

var validTransferStatuses = []TransferStatus{
	TransferStatusDraft,
	TransferStatusSent,
	TransferStatusInTransit,
	TransferStatusPartialReceived,
	TransferStatusReceived,
	TransferStatusCancelled,
}

// IsValid reports whether the value matches the canonical transfer enum.
func (s TransferStatus) IsValid() bool {
	for _, candidate := range validTransferStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsOpenInbound reports whether a transfer in this status still has stock on
// the road toward its destination store.
func (s TransferStatus) IsOpenInbound() bool {
	return s == TransferStatusInTransit || s == TransferStatusPartialReceived
}

// CanCancel reports whether cancellation is still permitted. Once stock has
// departed the origin store the transfer must be corrected via receive plus
// adjustment, never silently cancelled.
func (s TransferStatus) CanCancel() bool {
	return s == TransferStatusDraft || s == TransferStatusSent
}

// ParseTransferStatus converts raw input into TransferStatus.
func ParseTransferStatus(value string) (TransferStatus, error) {
	for _, candidate := range validTransferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer status %q", value)
}
