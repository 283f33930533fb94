package enums

import "fmt"

// CountSessionStatus maps to the count_session_status_enum enum in Postgres.
type CountSessionStatus string

const (
	CountSessionStatusOpen      CountSessionStatus = "open"
	CountSessionStatusFinalized CountSessionStatus = "finalized"
	CountSessionStatusCancelled CountSessionStatus = "cancelled"
)

var validCountSessionStatuses = []CountSessionStatus{
	CountSessionStatusOpen,
	CountSessionStatusFinalized,
	CountSessionStatusCancelled,
}

// IsValid reports whether the value matches the canonical count session enum.
func (s CountSessionStatus) IsValid() bool {
	for _, candidate := range validCountSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCountSessionStatus converts raw input into CountSessionStatus.
func ParseCountSessionStatus(value string) (CountSessionStatus, error) {
	for _, candidate := range validCountSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid count session status %q", value)
}

// CountScope narrows which variants a count session covers.
type CountScope string

const (
	CountScopeFullStore CountScope = "full_store"
	CountScopeZone      CountScope = "zone"
)

var validCountScopes = []CountScope{
	CountScopeFullStore,
	CountScopeZone,
}

// IsValid reports whether the value matches the canonical count scope enum.
func (s CountScope) IsValid() bool {
	for _, candidate := range validCountScopes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCountScope converts raw input into CountScope.
func ParseCountScope(value string) (CountScope, error) {
	for _, candidate := range validCountScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid count scope %q", value)
}
