package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skybook/internal/auth"
	apperrors "skybook/internal/errors"
	"skybook/internal/logger"
	"skybook/internal/metrics"
	"skybook/internal/models"
	"skybook/internal/pnr"
	"skybook/internal/search"
)

// bookingStore is the persistence surface the coordinator relies on.
type bookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	GetByUserID(ctx context.Context, userID int64) ([]models.Booking, error)
	List(ctx context.Context, status string, page, pageSize int) ([]models.Booking, error)
	Delete(ctx context.Context, id int64) (bool, error)
	PNRExists(ctx context.Context, code string) (bool, error)
	Confirm(ctx context.Context, id int64, totalAmount int64, pnrCode string, loadedAt time.Time) error
	Cancel(ctx context.Context, id int64) error
	ApplyPassengerChanges(ctx context.Context, bookingID int64, loadedAt time.Time, changes models.PassengerChangeSet) error
}

// flightGateway talks to the remote flight inventory service.
type flightGateway interface {
	FetchFlight(ctx context.Context, token string, flightID int64) (*models.Flight, error)
	ReserveSeats(ctx context.Context, token string, flightID int64, count int) (*models.Flight, error)
	ReleaseSeats(ctx context.Context, token string, flightID int64, count int) error
}

// userGateway talks to the remote user service.
type userGateway interface {
	FetchUser(ctx context.Context, token string, userID int64) (*models.RemoteUser, error)
	ValidateUser(ctx context.Context, token string, userID int64) error
}

// bookingLocker serializes mutations per booking. Acquisition yields an
// ownership token; release is a no-op unless the token still owns the
// lock.
type bookingLocker interface {
	AcquireBookingLock(ctx context.Context, bookingID int64) (string, bool, error)
	ReleaseBookingLock(ctx context.Context, bookingID int64, token string) error
}

// eventPublisher emits lifecycle events. Publishing is best effort and
// never fails a booking operation.
type eventPublisher interface {
	Publish(subject string, data interface{}) error
}

// bookingIndexer maintains the admin search projection. Indexing is
// best effort; the SQL store stays the source of truth.
type bookingIndexer interface {
	IndexBooking(ctx context.Context, booking *models.Booking) error
	DeleteBooking(ctx context.Context, id int64) error
	Search(ctx context.Context, query, status string, page, pageSize int) ([]search.BookingDocument, error)
}

type BookingService struct {
	repo    bookingStore
	flights flightGateway
	users   userGateway
	locks   bookingLocker
	nats    eventPublisher
	index   bookingIndexer
	pnrGen  *pnr.Generator
}

func NewBookingService(repo bookingStore, flights flightGateway, users userGateway, locks bookingLocker, nats eventPublisher, index bookingIndexer) *BookingService {
	return &BookingService{
		repo:    repo,
		flights: flights,
		users:   users,
		locks:   locks,
		nats:    nats,
		index:   index,
		pnrGen:  pnr.NewGenerator(repo.PNRExists),
	}
}

// Create opens a PENDING booking for the caller after validating the
// account and the flight against their services. No seats are touched.
func (s *BookingService) Create(ctx context.Context, id auth.Identity, req *models.CreateBookingRequest) (*models.Booking, error) {
	if err := s.users.ValidateUser(ctx, id.Token, id.UserID); err != nil {
		return nil, fmt.Errorf("validate user: %w", err)
	}

	if _, err := s.flights.FetchFlight(ctx, id.Token, req.FlightID); err != nil {
		return nil, fmt.Errorf("validate flight: %w", err)
	}

	booking := &models.Booking{
		UserID:      id.UserID,
		FlightID:    req.FlightID,
		Status:      models.BookingStatusPending,
		TotalAmount: 0,
		PNR:         models.PNRPlaceholder,
		BookingDate: time.Now().UTC(),
	}
	for _, p := range req.Passengers {
		booking.Passengers = append(booking.Passengers, models.Passenger{
			FullName: p.FullName,
			Age:      p.Age,
			Gender:   p.Gender,
			Status:   models.BookingStatusPending,
		})
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.publish(ctx, models.EventBookingCreated, models.BookingCreatedEvent{
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		FlightID:   booking.FlightID,
		Passengers: len(booking.Passengers),
		Timestamp:  time.Now().UTC(),
	})
	s.reindex(ctx, booking)

	return booking, nil
}

// Get returns one booking, visible to its owner and to admins.
func (s *BookingService) Get(ctx context.Context, id auth.Identity, bookingID int64) (*models.Booking, error) {
	return s.loadOwned(ctx, id, bookingID)
}

// Mine lists the caller's own bookings.
func (s *BookingService) Mine(ctx context.Context, id auth.Identity) ([]models.Booking, error) {
	bookings, err := s.repo.GetByUserID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// List is the admin listing. When a free-text query is given and the
// search index is wired, matching goes through Elasticsearch; any index
// failure degrades to the plain SQL listing.
func (s *BookingService) List(ctx context.Context, id auth.Identity, q models.ListBookingsQuery) ([]models.Booking, error) {
	if !id.IsAdmin {
		return nil, apperrors.ErrForbidden
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Status != "" && !models.BookingStatus(q.Status).Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidRequest, q.Status)
	}

	if q.Query != "" && s.index != nil {
		docs, err := s.index.Search(ctx, q.Query, q.Status, q.Page, q.PageSize)
		if err == nil {
			bookings := make([]models.Booking, 0, len(docs))
			for _, doc := range docs {
				b, err := s.repo.GetByID(ctx, doc.ID)
				if err != nil {
					return nil, fmt.Errorf("load booking %d: %w", doc.ID, err)
				}
				if b != nil {
					bookings = append(bookings, *b)
				}
			}
			return bookings, nil
		}
		logger.WithContext(ctx).Warn("Search index unavailable, falling back to SQL listing",
			"error", err, "query", q.Query)
	}

	bookings, err := s.repo.List(ctx, q.Status, q.Page, q.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// Update reconciles the booking's passenger list. Only PENDING bookings
// may be edited.
func (s *BookingService) Update(ctx context.Context, id auth.Identity, bookingID int64, req *models.UpdateBookingRequest) (*models.Booking, error) {
	var updated *models.Booking
	err := s.withBookingLock(ctx, bookingID, func() error {
		booking, err := s.loadOwned(ctx, id, bookingID)
		if err != nil {
			return err
		}
		if !booking.Status.Editable() {
			return fmt.Errorf("%w: only pending bookings can be updated", apperrors.ErrInvalidState)
		}

		changes, err := ReconcilePassengers(booking.Passengers, req.Passengers)
		if err != nil {
			return err
		}

		if !changes.Empty() {
			if err := s.repo.ApplyPassengerChanges(ctx, bookingID, booking.UpdatedAt, changes); err != nil {
				return fmt.Errorf("apply passenger changes: %w", err)
			}
		}

		updated, err = s.repo.GetByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("reload booking: %w", err)
		}

		s.publish(ctx, models.EventBookingUpdated, models.BookingUpdatedEvent{
			BookingID:  bookingID,
			FlightID:   updated.FlightID,
			Passengers: len(updated.Passengers),
			Timestamp:  time.Now().UTC(),
		})
		s.reindex(ctx, updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Confirm runs the confirm saga: reserve seats remotely first, then
// commit the local CONFIRMED state. If the local commit fails the
// remote reservation is compensated by releasing the same seats.
func (s *BookingService) Confirm(ctx context.Context, id auth.Identity, bookingID int64) (*models.Booking, error) {
	var confirmed *models.Booking
	err := s.withBookingLock(ctx, bookingID, func() error {
		booking, err := s.loadOwned(ctx, id, bookingID)
		if err != nil {
			return err
		}
		if !booking.Status.CanTransition(models.BookingStatusConfirmed) {
			return fmt.Errorf("%w: cannot confirm a non-pending booking", apperrors.ErrInvalidState)
		}
		seats := len(booking.Passengers)
		if seats == 0 {
			return fmt.Errorf("%w: cannot confirm a booking without passengers", apperrors.ErrInvalidRequest)
		}

		code, err := s.pnrGen.Generate(ctx)
		if err != nil {
			return err
		}

		flight, err := s.flights.ReserveSeats(ctx, id.Token, booking.FlightID, seats)
		if err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				metrics.SeatReservationConflicts.Inc()
			}
			return fmt.Errorf("reserve seats: %w", err)
		}

		totalAmount := flight.TicketPrice * int64(seats)

		if err := s.repo.Confirm(ctx, bookingID, totalAmount, code, booking.UpdatedAt); err != nil {
			cause := fmt.Errorf("commit confirmation: %w", err)
			if relErr := s.flights.ReleaseSeats(ctx, id.Token, booking.FlightID, seats); relErr != nil {
				metrics.Compensations.WithLabelValues("confirm", "failure").Inc()
				logger.WithContext(ctx).Error("Seat release compensation failed, seats leaked",
					"booking_id", bookingID, "flight_id", booking.FlightID,
					"seats", seats, "cause", err, "compensation_error", relErr)
				return &apperrors.CompensationError{Cause: cause, Compensation: relErr}
			}
			metrics.Compensations.WithLabelValues("confirm", "success").Inc()
			logger.WithContext(ctx).Warn("Confirmation rolled back, reserved seats released",
				"booking_id", bookingID, "flight_id", booking.FlightID, "seats", seats)
			return cause
		}

		confirmed, err = s.repo.GetByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("reload booking: %w", err)
		}

		s.publish(ctx, models.EventBookingConfirmed, models.BookingConfirmedEvent{
			BookingID:     bookingID,
			FlightID:      booking.FlightID,
			PNR:           code,
			TotalAmount:   totalAmount,
			SeatsReserved: seats,
			Timestamp:     time.Now().UTC(),
		})
		s.reindex(ctx, confirmed)
		return nil
	})

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.SagaOperations.WithLabelValues("confirm", outcome).Inc()

	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// Cancel runs the cancel saga on a CONFIRMED booking: release the seats
// remotely, then commit the local CANCELLED state. If the local commit
// fails the released seats are re-reserved. The returned receipt keeps
// the committed price and PNR as an audit record.
func (s *BookingService) Cancel(ctx context.Context, id auth.Identity, bookingID int64) (*models.CancelReceipt, error) {
	var receipt *models.CancelReceipt
	err := s.withBookingLock(ctx, bookingID, func() error {
		booking, err := s.loadOwned(ctx, id, bookingID)
		if err != nil {
			return err
		}
		if !booking.Status.CanTransition(models.BookingStatusCancelled) {
			return fmt.Errorf("%w: only confirmed bookings can be cancelled", apperrors.ErrInvalidState)
		}
		seats := len(booking.Passengers)

		// Gather receipt data before any side effect so an upstream
		// outage aborts the saga while nothing has changed yet.
		flight, err := s.flights.FetchFlight(ctx, id.Token, booking.FlightID)
		if err != nil {
			return fmt.Errorf("fetch flight: %w", err)
		}
		user, err := s.users.FetchUser(ctx, id.Token, booking.UserID)
		if err != nil {
			return fmt.Errorf("fetch user: %w", err)
		}

		if err := s.flights.ReleaseSeats(ctx, id.Token, booking.FlightID, seats); err != nil {
			return fmt.Errorf("release seats: %w", err)
		}

		if err := s.repo.Cancel(ctx, bookingID); err != nil {
			cause := fmt.Errorf("commit cancellation: %w", err)
			if _, resErr := s.flights.ReserveSeats(ctx, id.Token, booking.FlightID, seats); resErr != nil {
				metrics.Compensations.WithLabelValues("cancel", "failure").Inc()
				logger.WithContext(ctx).Error("Seat re-reserve compensation failed, booking still confirmed but seats released",
					"booking_id", bookingID, "flight_id", booking.FlightID,
					"seats", seats, "cause", err, "compensation_error", resErr)
				return &apperrors.CompensationError{Cause: cause, Compensation: resErr}
			}
			metrics.Compensations.WithLabelValues("cancel", "success").Inc()
			logger.WithContext(ctx).Warn("Cancellation rolled back, released seats re-reserved",
				"booking_id", bookingID, "flight_id", booking.FlightID, "seats", seats)
			return cause
		}

		cancelled, err := s.repo.GetByID(ctx, bookingID)
		if err != nil {
			return fmt.Errorf("reload booking: %w", err)
		}

		s.publish(ctx, models.EventBookingCancelled, models.BookingCancelledEvent{
			BookingID:     bookingID,
			FlightID:      booking.FlightID,
			SeatsReleased: seats,
			Reason:        "user requested",
			Timestamp:     time.Now().UTC(),
		})
		s.reindex(ctx, cancelled)

		receipt = &models.CancelReceipt{
			Message: "Booking Cancelled successfully.",
			Details: models.ItineraryDetails{
				BookingID:   cancelled.ID,
				PNR:         cancelled.PNR,
				Status:      cancelled.Status,
				TotalAmount: cancelled.TotalAmount,
				BookingDate: cancelled.BookingDate,
				Flight:      models.SummarizeFlight(flight),
				Passengers:  models.PassengerViews(cancelled.Passengers),
				BookedBy:    models.BookedBy{FullName: user.FullName},
			},
		}
		return nil
	})

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.SagaOperations.WithLabelValues("cancel", outcome).Inc()

	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Review projects the booking for the caller. Committed bookings get
// the full itinerary; pending ones get a preview with live flight data
// and no pricing, since nothing is committed yet.
func (s *BookingService) Review(ctx context.Context, id auth.Identity, bookingID int64) (*models.ReviewResponse, error) {
	booking, err := s.loadOwned(ctx, id, bookingID)
	if err != nil {
		return nil, err
	}

	flight, err := s.flights.FetchFlight(ctx, id.Token, booking.FlightID)
	if err != nil {
		return nil, fmt.Errorf("fetch flight: %w", err)
	}
	user, err := s.users.FetchUser(ctx, id.Token, booking.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}

	if booking.Status == models.BookingStatusPending {
		return &models.ReviewResponse{
			Message: "Booking Preview",
			Preview: &models.PendingPreview{
				BookingID:   booking.ID,
				Status:      booking.Status,
				BookingDate: booking.BookingDate,
				Flight:      flight,
				Passengers:  models.PassengerViews(booking.Passengers),
				InitiatedBy: models.BookedBy{FullName: user.FullName},
			},
		}, nil
	}

	return &models.ReviewResponse{
		Message: "Flight Reservation details",
		Itinerary: &models.ItineraryDetails{
			BookingID:   booking.ID,
			PNR:         booking.PNR,
			Status:      booking.Status,
			TotalAmount: booking.TotalAmount,
			BookingDate: booking.BookingDate,
			Flight:      models.SummarizeFlight(flight),
			Passengers:  models.PassengerViews(booking.Passengers),
			BookedBy:    models.BookedBy{FullName: user.FullName},
		},
	}, nil
}

// Delete is the admin purge. It removes the local record only; remote
// seat inventory is left untouched.
func (s *BookingService) Delete(ctx context.Context, id auth.Identity, bookingID int64) error {
	if !id.IsAdmin {
		return apperrors.ErrForbidden
	}

	deleted, err := s.repo.Delete(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if !deleted {
		return apperrors.ErrNotFound
	}

	s.publish(ctx, models.EventBookingDeleted, models.BookingDeletedEvent{
		BookingID: bookingID,
		Timestamp: time.Now().UTC(),
	})
	if s.index != nil {
		if err := s.index.DeleteBooking(ctx, bookingID); err != nil {
			logger.WithContext(ctx).Warn("Failed to remove booking from search index",
				"error", err, "booking_id", bookingID)
		}
	}
	return nil
}

// loadOwned fetches a booking and enforces owner-or-admin visibility.
func (s *BookingService) loadOwned(ctx context.Context, id auth.Identity, bookingID int64) (*models.Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}
	if !id.CanAccess(booking.UserID) {
		return nil, apperrors.ErrForbidden
	}
	return booking, nil
}

// withBookingLock serializes mutations of one booking. A held lock
// means a concurrent mutation is in flight, which callers see as a
// conflict rather than a wait. The release carries the acquisition
// token, so a saga that outlived the lock TTL cannot drop a lock some
// later caller now holds.
func (s *BookingService) withBookingLock(ctx context.Context, bookingID int64, fn func() error) error {
	token, acquired, err := s.locks.AcquireBookingLock(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("acquire booking lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: booking is being modified by another request", apperrors.ErrConflict)
	}
	defer func() {
		if err := s.locks.ReleaseBookingLock(ctx, bookingID, token); err != nil {
			logger.WithContext(ctx).Error("Failed to release booking lock",
				"error", err, "booking_id", bookingID)
		}
	}()

	return fn()
}

func (s *BookingService) publish(ctx context.Context, subject string, event interface{}) {
	if s.nats == nil {
		return
	}
	if err := s.nats.Publish(subject, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish booking event",
			"error", err, "event_type", subject)
	}
}

func (s *BookingService) reindex(ctx context.Context, booking *models.Booking) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexBooking(ctx, booking); err != nil {
		logger.WithContext(ctx).Warn("Failed to index booking",
			"error", err, "booking_id", booking.ID)
	}
}
