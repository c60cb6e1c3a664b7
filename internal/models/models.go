package models

import "time"

// PassengerInput carries one passenger in create/update payloads. A zero
// ID means "not yet created"; a non-zero ID refers to an existing
// passenger of the same booking.
type PassengerInput struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name" binding:"required"`
	Age      int    `json:"age" binding:"required,gt=0"`
	Gender   string `json:"gender" binding:"required"`
}

// CreateBookingRequest creates a PENDING booking for the caller.
type CreateBookingRequest struct {
	FlightID   int64            `json:"flight_id" binding:"required"`
	Passengers []PassengerInput `json:"passengers"`
}

// UpdateBookingRequest replaces the booking's passenger set while the
// booking is still PENDING. Passengers absent from the list are removed.
type UpdateBookingRequest struct {
	Passengers []PassengerInput `json:"passengers" binding:"required"`
}

// ListBookingsQuery filters the admin listing. Query is matched against
// passenger names and PNR codes via the search index when available.
type ListBookingsQuery struct {
	Query    string `form:"query"`
	Status   string `form:"status"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"pageSize,default=20"`
}

// PassengerChangeSet is the outcome of reconciling an incoming
// passenger list against a booking's current set. The repository
// applies it as one transaction.
type PassengerChangeSet struct {
	Create    []Passenger
	Update    []Passenger
	RemoveIDs []int64
}

// Empty reports whether the change set would touch nothing.
func (c PassengerChangeSet) Empty() bool {
	return len(c.Create) == 0 && len(c.Update) == 0 && len(c.RemoveIDs) == 0
}

// FlightSummary is the trimmed flight view embedded in itineraries and
// cancel receipts.
type FlightSummary struct {
	FlightID      int64     `json:"flight_id"`
	FlightNumber  string    `json:"flight_number"`
	Airline       string    `json:"airline"`
	DepartureCity string    `json:"departure_city"`
	ArrivalCity   string    `json:"arrival_city"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
}

// SummarizeFlight trims a remote flight to the fields a committed
// itinerary exposes.
func SummarizeFlight(f *Flight) FlightSummary {
	return FlightSummary{
		FlightID:      f.ID,
		FlightNumber:  f.FlightNumber,
		Airline:       f.Airline,
		DepartureCity: f.DepartureCity,
		ArrivalCity:   f.ArrivalCity,
		DepartureTime: f.DepartureTime,
		ArrivalTime:   f.ArrivalTime,
	}
}

// PassengerView is the passenger projection used in reviews and receipts.
type PassengerView struct {
	ID       int64         `json:"id"`
	FullName string        `json:"full_name"`
	Gender   string        `json:"gender"`
	Status   BookingStatus `json:"status"`
}

// PassengerViews projects the booking's passengers for review output.
func PassengerViews(passengers []Passenger) []PassengerView {
	views := make([]PassengerView, len(passengers))
	for i, p := range passengers {
		views[i] = PassengerView{
			ID:       p.ID,
			FullName: p.FullName,
			Gender:   p.Gender,
			Status:   p.Status,
		}
	}
	return views
}

// BookedBy names the account that owns the booking.
type BookedBy struct {
	FullName string `json:"full_name"`
}

// ItineraryDetails is the full projection for CONFIRMED and CANCELLED
// bookings: committed pricing, the assigned PNR and a flight summary.
type ItineraryDetails struct {
	BookingID   int64           `json:"booking_id"`
	PNR         string          `json:"pnr"`
	Status      BookingStatus   `json:"status"`
	TotalAmount int64           `json:"total_amount"`
	BookingDate time.Time       `json:"booking_date"`
	Flight      FlightSummary   `json:"flight_details"`
	Passengers  []PassengerView `json:"passengers"`
	BookedBy    BookedBy        `json:"booked_by"`
}

// PendingPreview is the projection for PENDING bookings: no PNR and no
// committed pricing, but the full current flight for planning.
type PendingPreview struct {
	BookingID   int64           `json:"booking_id"`
	Status      BookingStatus   `json:"status"`
	BookingDate time.Time       `json:"booking_date"`
	Flight      *Flight         `json:"flight_details"`
	Passengers  []PassengerView `json:"passengers"`
	InitiatedBy BookedBy        `json:"booking_initiated_by"`
}

// ReviewResponse is the status-dependent review projection. Exactly one
// of Itinerary and Preview is set.
type ReviewResponse struct {
	Message   string            `json:"message"`
	Itinerary *ItineraryDetails `json:"booking_details,omitempty"`
	Preview   *PendingPreview   `json:"booking_preview,omitempty"`
}

// CancelReceipt is returned by the cancel operation: the terminal
// itinerary kept as an audit record of what was charged.
type CancelReceipt struct {
	Message string           `json:"message"`
	Details ItineraryDetails `json:"booking_details"`
}
