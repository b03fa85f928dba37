package enums

import "fmt"

// HoldStatus tracks the lifecycle of a capacity hold against a session.
type HoldStatus string

const (
	HoldStatusReserved  HoldStatus = "reserved"
	HoldStatusConfirmed HoldStatus = "confirmed"
	HoldStatusExpired   HoldStatus = "expired"
	HoldStatusCancelled HoldStatus = "cancelled"
)

var validHoldStatuses = []HoldStatus{
	HoldStatusReserved,
	HoldStatusConfirmed,
	HoldStatusExpired,
	HoldStatusCancelled,
}

// String implements fmt.Stringer.
func (h HoldStatus) String() string {
	return string(h)
}

// IsValid reports whether the value is a known HoldStatus.
func (h HoldStatus) IsValid() bool {
	for _, candidate := range validHoldStatuses {
		if candidate == h {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the hold can no longer transition.
func (h HoldStatus) IsTerminal() bool {
	switch h {
	case HoldStatusConfirmed, HoldStatusExpired, HoldStatusCancelled:
		return true
	}
	return false
}

// ParseHoldStatus converts raw input into a HoldStatus.
func ParseHoldStatus(value string) (HoldStatus, error) {
	for _, candidate := range validHoldStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid hold status %q", value)
}
