package service

import (
	"skybook/internal/cache"
	"skybook/internal/external"
	"skybook/internal/messaging"
	"skybook/internal/repository"
	"skybook/internal/search"
)

type Services struct {
	Bookings *BookingService
}

// NewServices wires the booking coordinator. The NATS client and the
// search index are optional; passing nil disables events or search.
func NewServices(repos *repository.Repositories, flights *external.FlightClient, users *external.UserClient, locks *cache.LockManager, natsClient *messaging.NATSClient, index *search.BookingIndex) *Services {
	var nats eventPublisher
	if natsClient != nil {
		nats = natsClient
	}
	var idx bookingIndexer
	if index != nil {
		idx = index
	}

	return &Services{
		Bookings: NewBookingService(repos.Bookings, flights, users, locks, nats, idx),
	}
}
