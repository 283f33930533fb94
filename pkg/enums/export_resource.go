package enums

import "fmt"

// ExportResource names a row stream exported via per-tenant cursors.
type ExportResource string

const (
	ExportResourceLedgerEntries  ExportResource = "ledger_entries"
	ExportResourceTransfers      ExportResource = "transfers"
	ExportResourceCountSessions  ExportResource = "count_sessions"
	ExportResourcePurchaseOrders ExportResource = "purchase_orders"
)

var validExportResources = []ExportResource{
	ExportResourceLedgerEntries,
	ExportResourceTransfers,
	ExportResourceCountSessions,
	ExportResourcePurchaseOrders,
}

// IsValid reports whether the value matches the canonical export resource enum.
func (r ExportResource) IsValid() bool {
	for _, candidate := range validExportResources {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseExportResource converts raw input into ExportResource.
func ParseExportResource(value string) (ExportResource, error) {
	for _, candidate := range validExportResources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid export resource %q", value)
}
