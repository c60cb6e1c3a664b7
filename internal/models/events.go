package models

import "time"

// NATS event subjects
const (
	EventBookingCreated   = "booking.created"
	EventBookingUpdated   = "booking.updated"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingDeleted   = "booking.deleted"
)

// BookingCreatedEvent represents a new PENDING booking.
type BookingCreatedEvent struct {
	BookingID  int64     `json:"booking_id"`
	UserID     int64     `json:"user_id"`
	FlightID   int64     `json:"flight_id"`
	Passengers int       `json:"passengers"`
	Timestamp  time.Time `json:"timestamp"`
}

// BookingUpdatedEvent represents a passenger reconciliation on a
// PENDING booking.
type BookingUpdatedEvent struct {
	BookingID  int64     `json:"booking_id"`
	FlightID   int64     `json:"flight_id"`
	Passengers int       `json:"passengers"`
	Timestamp  time.Time `json:"timestamp"`
}

// BookingConfirmedEvent represents a completed confirm saga.
type BookingConfirmedEvent struct {
	BookingID     int64     `json:"booking_id"`
	FlightID      int64     `json:"flight_id"`
	PNR           string    `json:"pnr"`
	TotalAmount   int64     `json:"total_amount"`
	SeatsReserved int       `json:"seats_reserved"`
	Timestamp     time.Time `json:"timestamp"`
}

// BookingCancelledEvent represents a completed cancel saga.
type BookingCancelledEvent struct {
	BookingID     int64     `json:"booking_id"`
	FlightID      int64     `json:"flight_id"`
	SeatsReleased int       `json:"seats_released"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

// BookingDeletedEvent represents an administrative purge.
type BookingDeletedEvent struct {
	BookingID int64     `json:"booking_id"`
	Timestamp time.Time `json:"timestamp"`
}
