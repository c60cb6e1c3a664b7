package repository

import (
	"skybook/internal/database"
)

type Repositories struct {
	Bookings *BookingRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Bookings: NewBookingRepository(db),
	}
}
