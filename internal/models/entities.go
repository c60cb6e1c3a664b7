package models

import (
	"time"
)

// Booking is the local aggregate root. Passengers are owned by the
// booking and never shared across bookings.
type Booking struct {
	ID          int64         `json:"id" db:"id"`
	UserID      int64         `json:"user_id" db:"user_id"`
	FlightID    int64         `json:"flight_id" db:"flight_id"`
	Status      BookingStatus `json:"status" db:"status"`
	TotalAmount int64         `json:"total_amount" db:"total_amount"`
	PNR         string        `json:"pnr" db:"pnr"`
	BookingDate time.Time     `json:"booking_date" db:"booking_date"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
	Passengers  []Passenger   `json:"passengers"` // Not from the bookings table, loaded separately
}

// Passenger belongs to exactly one booking. Its status mirrors the
// owning booking's status after every successful operation.
type Passenger struct {
	ID        int64         `json:"id" db:"id"`
	BookingID int64         `json:"booking_id" db:"booking_id"`
	FullName  string        `json:"full_name" db:"full_name"`
	Age       int           `json:"age" db:"age"`
	Gender    string        `json:"gender" db:"gender"`
	Status    BookingStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// Flight is the remote flight service's resource as observed over its
// API. AvailableSeats at fetch time doubles as the freshness token for
// conditional seat updates.
type Flight struct {
	ID             int64     `json:"id"`
	FlightNumber   string    `json:"flight_number"`
	Airline        string    `json:"airline"`
	DepartureCity  string    `json:"departure_city"`
	ArrivalCity    string    `json:"arrival_city"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	TicketPrice    int64     `json:"ticket_price"`
}

// RemoteUser is the user service's projection of an account.
type RemoteUser struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}
