package enums

import "fmt"

// PurchaseOrderStatus maps to the purchase_order_status_enum enum in Postgres.
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusOpen            PurchaseOrderStatus = "open"
	PurchaseOrderStatusPartialReceived PurchaseOrderStatus = "partial_received"
	PurchaseOrderStatusReceived        PurchaseOrderStatus = "received"
	PurchaseOrderStatusCancelled       PurchaseOrderStatus = "cancelled"
)

var validPurchaseOrderStatuses = []PurchaseOrderStatus{
	PurchaseOrderStatusOpen,
	PurchaseOrderStatusPartialReceived,
	PurchaseOrderStatusReceived,
	PurchaseOrderStatusCancelled,
}

// IsValid reports whether the value matches the canonical purchase order enum.
func (s PurchaseOrderStatus) IsValid() bool {
	for _, candidate := range validPurchaseOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// AcceptsReceipts reports whether more stock may still arrive against the PO.
func (s PurchaseOrderStatus) AcceptsReceipts() bool {
	return s == PurchaseOrderStatusOpen || s == PurchaseOrderStatusPartialReceived
}

// ParsePurchaseOrderStatus converts raw input into PurchaseOrderStatus.
func ParsePurchaseOrderStatus(value string) (PurchaseOrderStatus, error) {
	for _, candidate := range validPurchaseOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchase order status %q", value)
}
