package models

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// PNRPlaceholder is stored until the confirm transition assigns a real
// code. A PNR is assigned exactly once and never changes afterwards.
const PNRPlaceholder = "000000"

// CanTransition reports whether moving from s to target is a legal
// lifecycle transition. PENDING is initial, CANCELLED is terminal.
func (s BookingStatus) CanTransition(target BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return target == BookingStatusConfirmed
	case BookingStatusConfirmed:
		return target == BookingStatusCancelled
	default:
		return false
	}
}

// Editable reports whether passenger reconciliation is allowed. Only
// PENDING bookings may be edited; confirmed and cancelled bookings are
// immutable apart from the cancel transition itself.
func (s BookingStatus) Editable() bool {
	return s == BookingStatusPending
}

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}
