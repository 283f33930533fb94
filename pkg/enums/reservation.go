package enums

import "fmt"

// ReservationStatus maps to the reservation_status_enum enum in Postgres.
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCommitted ReservationStatus = "committed"
	ReservationStatusReleased  ReservationStatus = "released"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusActive,
	ReservationStatusCommitted,
	ReservationStatusReleased,
}

// IsValid reports whether the value matches the canonical reservation enum.
func (s ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusCommitted || s == ReservationStatusReleased
}

// ParseReservationStatus converts raw input into ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}

// ReservationChannel identifies which sales channel requested a hold.
type ReservationChannel string

const (
	ReservationChannelPOS       ReservationChannel = "pos"
	ReservationChannelWeb       ReservationChannel = "web"
	ReservationChannelWholesale ReservationChannel = "wholesale"
	ReservationChannelInternal  ReservationChannel = "internal"
)

var validReservationChannels = []ReservationChannel{
	ReservationChannelPOS,
	ReservationChannelWeb,
	ReservationChannelWholesale,
	ReservationChannelInternal,
}

// IsValid reports whether the value matches the canonical channel enum.
func (c ReservationChannel) IsValid() bool {
	for _, candidate := range validReservationChannels {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseReservationChannel converts raw input into ReservationChannel.
func ParseReservationChannel(value string) (ReservationChannel, error) {
	for _, candidate := range validReservationChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation channel %q", value)
}
