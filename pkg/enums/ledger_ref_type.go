package enums

import "fmt"

// LedgerRefType maps to the ledger_ref_type_enum enum in Postgres. It names
// the business action that produced a stock ledger entry.
type LedgerRefType string

const (
	LedgerRefTypeAdjustment           LedgerRefType = "adjustment"
	LedgerRefTypeSale                 LedgerRefType = "sale"
	LedgerRefTypeReturn               LedgerRefType = "return"
	LedgerRefTypeTransferOut          LedgerRefType = "transfer_out"
	LedgerRefTypeTransferIn           LedgerRefType = "transfer_in"
	LedgerRefTypeCountReconcile       LedgerRefType = "count_reconcile"
	LedgerRefTypePurchaseOrderReceipt LedgerRefType = "purchase_order_receipt"
	LedgerRefTypeWaste                LedgerRefType = "waste"
	LedgerRefTypeReservationCommit    LedgerRefType = "reservation_commit"
	LedgerRefTypeReservationRelease   LedgerRefType = "reservation_release"
	LedgerRefTypeBreakage             LedgerRefType = "breakage"
	LedgerRefTypeShortage             LedgerRefType = "shortage"
)

var validLedgerRefTypes = []LedgerRefType{
	LedgerRefTypeAdjustment,
	LedgerRefTypeSale,
	LedgerRefTypeReturn,
	LedgerRefTypeTransferOut,
	LedgerRefTypeTransferIn,
	LedgerRefTypeCountReconcile,
	LedgerRefTypePurchaseOrderReceipt,
	LedgerRefTypeWaste,
	LedgerRefTypeReservationCommit,
	LedgerRefTypeReservationRelease,
	LedgerRefTypeBreakage,
	LedgerRefTypeShortage,
}

// IsValid reports whether the value matches the canonical ledger ref enum.
func (t LedgerRefType) IsValid() bool {
	for _, candidate := range validLedgerRefTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// AllowsZeroDelta reports whether a zero quantity delta is sanctioned for this
// ref type. Reservation releases are audit-only entries that move no stock;
// every other movement type must carry a nonzero delta.
func (t LedgerRefType) AllowsZeroDelta() bool {
	return t == LedgerRefTypeReservationRelease
}

// ParseLedgerRefType converts raw input into LedgerRefType.
func ParseLedgerRefType(value string) (LedgerRefType, error) {
	for _, candidate := range validLedgerRefTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger ref type %q", value)
}
