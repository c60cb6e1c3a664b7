package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skybook/internal/auth"
	apperrors "skybook/internal/errors"
	"skybook/internal/middleware"
	"skybook/internal/models"
	"skybook/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	mock.Mock
}

func (m *stubStore) Create(ctx context.Context, booking *models.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *stubStore) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *stubStore) GetByUserID(ctx context.Context, userID int64) ([]models.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *stubStore) List(ctx context.Context, status string, page, pageSize int) ([]models.Booking, error) {
	args := m.Called(ctx, status, page, pageSize)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *stubStore) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *stubStore) PNRExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *stubStore) Confirm(ctx context.Context, id int64, totalAmount int64, pnrCode string, loadedAt time.Time) error {
	args := m.Called(ctx, id, totalAmount, pnrCode, loadedAt)
	return args.Error(0)
}

func (m *stubStore) Cancel(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *stubStore) ApplyPassengerChanges(ctx context.Context, bookingID int64, loadedAt time.Time, changes models.PassengerChangeSet) error {
	args := m.Called(ctx, bookingID, loadedAt, changes)
	return args.Error(0)
}

type stubFlights struct {
	mock.Mock
}

func (m *stubFlights) FetchFlight(ctx context.Context, token string, flightID int64) (*models.Flight, error) {
	args := m.Called(ctx, token, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flight), args.Error(1)
}

func (m *stubFlights) ReserveSeats(ctx context.Context, token string, flightID int64, count int) (*models.Flight, error) {
	args := m.Called(ctx, token, flightID, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flight), args.Error(1)
}

func (m *stubFlights) ReleaseSeats(ctx context.Context, token string, flightID int64, count int) error {
	args := m.Called(ctx, token, flightID, count)
	return args.Error(0)
}

type stubUsers struct {
	mock.Mock
}

func (m *stubUsers) FetchUser(ctx context.Context, token string, userID int64) (*models.RemoteUser, error) {
	args := m.Called(ctx, token, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RemoteUser), args.Error(1)
}

func (m *stubUsers) ValidateUser(ctx context.Context, token string, userID int64) error {
	args := m.Called(ctx, token, userID)
	return args.Error(0)
}

type stubLocks struct {
	mock.Mock
}

func (m *stubLocks) AcquireBookingLock(ctx context.Context, bookingID int64) (string, bool, error) {
	args := m.Called(ctx, bookingID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *stubLocks) ReleaseBookingLock(ctx context.Context, bookingID int64, token string) error {
	args := m.Called(ctx, bookingID, token)
	return args.Error(0)
}

type stubNATS struct {
	mock.Mock
}

func (m *stubNATS) Publish(subject string, data interface{}) error {
	args := m.Called(subject, data)
	return args.Error(0)
}

type testEnv struct {
	repo    *stubStore
	flights *stubFlights
	users   *stubUsers
	locks   *stubLocks
	nats    *stubNATS
	router  *gin.Engine
}

// asIdentity injects the caller the way the auth middleware would.
func asIdentity(id auth.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(
			middleware.ContextWithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func newTestEnv(id auth.Identity) *testEnv {
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		repo:    &stubStore{},
		flights: &stubFlights{},
		users:   &stubUsers{},
		locks:   &stubLocks{},
		nats:    &stubNATS{},
	}

	svc := &service.Services{
		Bookings: service.NewBookingService(env.repo, env.flights, env.users, env.locks, env.nats, nil),
	}
	h := NewHandlers(svc)

	r := gin.New()
	api := r.Group("/api", asIdentity(id))
	{
		api.GET("/bookings", h.ListBookings)
		api.GET("/bookings/mine", h.ListMyBookings)
		api.GET("/bookings/:id", h.GetBooking)
		api.POST("/bookings", h.CreateBooking)
		api.PUT("/bookings/:id", h.UpdateBooking)
		api.DELETE("/bookings/:id", h.DeleteBooking)
		api.PUT("/bookings/:id/confirm", h.ConfirmBooking)
		api.PUT("/bookings/:id/cancel", h.CancelBooking)
		api.GET("/bookings/:id/review", h.ReviewBooking)
	}
	env.router = r
	return env
}

func (env *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

var (
	ownerID = auth.Identity{UserID: 7, Token: "tok-7"}
	adminID = auth.Identity{UserID: 1, IsAdmin: true, Token: "tok-admin"}
)

func fixtureBooking(status models.BookingStatus) *models.Booking {
	b := &models.Booking{
		ID:          10,
		UserID:      7,
		FlightID:    3,
		Status:      status,
		PNR:         models.PNRPlaceholder,
		BookingDate: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Passengers: []models.Passenger{
			{ID: 1, BookingID: 10, FullName: "Alice Smith", Age: 34, Gender: "female", Status: status},
		},
	}
	if status != models.BookingStatusPending {
		b.PNR = "A1B2C3"
		b.TotalAmount = 12500
	}
	return b
}

func fixtureFlight() *models.Flight {
	return &models.Flight{
		ID:             3,
		FlightNumber:   "SB101",
		Airline:        "SkyBook Air",
		DepartureCity:  "Oslo",
		ArrivalCity:    "Lisbon",
		TotalSeats:     180,
		AvailableSeats: 40,
		TicketPrice:    12500,
	}
}

func TestCreateBookingReturns201(t *testing.T) {
	env := newTestEnv(ownerID)
	env.users.On("ValidateUser", mock.Anything, "tok-7", int64(7)).Return(nil)
	env.flights.On("FetchFlight", mock.Anything, "tok-7", int64(3)).Return(fixtureFlight(), nil)
	env.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	env.nats.On("Publish", mock.Anything, mock.Anything).Return(nil)

	w := env.do("POST", "/api/bookings", models.CreateBookingRequest{
		FlightID: 3,
		Passengers: []models.PassengerInput{
			{FullName: "Alice Smith", Age: 34, Gender: "female"},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var booking models.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &booking))
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, models.PNRPlaceholder, booking.PNR)
}

func TestCreateBookingRejectsMissingFlightID(t *testing.T) {
	env := newTestEnv(ownerID)

	w := env.do("POST", "/api/bookings", gin.H{"passengers": []gin.H{}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBookingNotFound(t *testing.T) {
	env := newTestEnv(ownerID)
	env.repo.On("GetByID", mock.Anything, int64(99)).Return(nil, nil)

	w := env.do("GET", "/api/bookings/99", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetBookingForbiddenForStranger(t *testing.T) {
	env := newTestEnv(auth.Identity{UserID: 8, Token: "tok-8"})
	env.repo.On("GetByID", mock.Anything, int64(10)).
		Return(fixtureBooking(models.BookingStatusPending), nil)

	w := env.do("GET", "/api/bookings/10", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetBookingInvalidID(t *testing.T) {
	env := newTestEnv(ownerID)

	w := env.do("GET", "/api/bookings/abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateBookingRejectedOnceConfirmed(t *testing.T) {
	env := newTestEnv(ownerID)
	env.locks.On("AcquireBookingLock", mock.Anything, int64(10)).Return("lock-token", true, nil)
	env.locks.On("ReleaseBookingLock", mock.Anything, int64(10), "lock-token").Return(nil)
	env.repo.On("GetByID", mock.Anything, int64(10)).
		Return(fixtureBooking(models.BookingStatusConfirmed), nil)

	w := env.do("PUT", "/api/bookings/10", models.UpdateBookingRequest{
		Passengers: []models.PassengerInput{
			{FullName: "Late Addition", Age: 20, Gender: "male"},
		},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env.repo.AssertNotCalled(t, "ApplyPassengerChanges", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmBookingConflictWhenLocked(t *testing.T) {
	env := newTestEnv(ownerID)
	env.locks.On("AcquireBookingLock", mock.Anything, int64(10)).Return("", false, nil)

	w := env.do("PUT", "/api/bookings/10/confirm", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestConfirmBookingInsufficientSeats(t *testing.T) {
	env := newTestEnv(ownerID)
	env.locks.On("AcquireBookingLock", mock.Anything, int64(10)).Return("lock-token", true, nil)
	env.locks.On("ReleaseBookingLock", mock.Anything, int64(10), "lock-token").Return(nil)
	env.repo.On("GetByID", mock.Anything, int64(10)).
		Return(fixtureBooking(models.BookingStatusPending), nil)
	env.repo.On("PNRExists", mock.Anything, mock.Anything).Return(false, nil)
	env.flights.On("ReserveSeats", mock.Anything, "tok-7", int64(3), 1).
		Return(nil, apperrors.ErrInsufficientCapacity)

	w := env.do("PUT", "/api/bookings/10/confirm", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient seats")
}

func TestCancelBookingReturnsReceipt(t *testing.T) {
	env := newTestEnv(ownerID)
	cancelled := fixtureBooking(models.BookingStatusCancelled)

	env.locks.On("AcquireBookingLock", mock.Anything, int64(10)).Return("lock-token", true, nil)
	env.locks.On("ReleaseBookingLock", mock.Anything, int64(10), "lock-token").Return(nil)
	env.repo.On("GetByID", mock.Anything, int64(10)).
		Return(fixtureBooking(models.BookingStatusConfirmed), nil).Once()
	env.flights.On("FetchFlight", mock.Anything, "tok-7", int64(3)).Return(fixtureFlight(), nil)
	env.users.On("FetchUser", mock.Anything, "tok-7", int64(7)).
		Return(&models.RemoteUser{ID: 7, FullName: "Alice Smith"}, nil)
	env.flights.On("ReleaseSeats", mock.Anything, "tok-7", int64(3), 1).Return(nil)
	env.repo.On("Cancel", mock.Anything, int64(10)).Return(nil)
	env.repo.On("GetByID", mock.Anything, int64(10)).Return(cancelled, nil).Once()
	env.nats.On("Publish", mock.Anything, mock.Anything).Return(nil)

	w := env.do("PUT", "/api/bookings/10/cancel", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var receipt models.CancelReceipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
	assert.Equal(t, "Booking Cancelled successfully.", receipt.Message)
	assert.Equal(t, models.BookingStatusCancelled, receipt.Details.Status)
	assert.Equal(t, "A1B2C3", receipt.Details.PNR)
}

func TestReviewPendingBooking(t *testing.T) {
	env := newTestEnv(ownerID)
	env.repo.On("GetByID", mock.Anything, int64(10)).
		Return(fixtureBooking(models.BookingStatusPending), nil)
	env.flights.On("FetchFlight", mock.Anything, "tok-7", int64(3)).Return(fixtureFlight(), nil)
	env.users.On("FetchUser", mock.Anything, "tok-7", int64(7)).
		Return(&models.RemoteUser{ID: 7, FullName: "Alice Smith"}, nil)

	w := env.do("GET", "/api/bookings/10/review", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ReviewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Booking Preview", resp.Message)
	require.NotNil(t, resp.Preview)
	assert.Nil(t, resp.Itinerary)
}

func TestListBookingsForbiddenForNonAdmin(t *testing.T) {
	env := newTestEnv(ownerID)

	w := env.do("GET", "/api/bookings", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListBookingsAsAdmin(t *testing.T) {
	env := newTestEnv(adminID)
	env.repo.On("List", mock.Anything, "CONFIRMED", 1, 20).
		Return([]models.Booking{*fixtureBooking(models.BookingStatusConfirmed)}, nil)

	w := env.do("GET", "/api/bookings?status=CONFIRMED", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var bookings []models.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bookings))
	require.Len(t, bookings, 1)
	assert.Equal(t, "A1B2C3", bookings[0].PNR)
}

func TestDeleteBookingForbiddenForNonAdmin(t *testing.T) {
	env := newTestEnv(ownerID)

	w := env.do("DELETE", "/api/bookings/10", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteBookingAsAdmin(t *testing.T) {
	env := newTestEnv(adminID)
	env.repo.On("Delete", mock.Anything, int64(10)).Return(true, nil)
	env.nats.On("Publish", mock.Anything, mock.Anything).Return(nil)

	w := env.do("DELETE", "/api/bookings/10", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Booking deleted successfully.")
}

func TestListMyBookings(t *testing.T) {
	env := newTestEnv(ownerID)
	env.repo.On("GetByUserID", mock.Anything, int64(7)).
		Return([]models.Booking{*fixtureBooking(models.BookingStatusPending)}, nil)

	w := env.do("GET", "/api/bookings/mine", nil)

	require.Equal(t, http.StatusOK, w.Code)

	var bookings []models.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bookings))
	require.Len(t, bookings, 1)
	assert.Equal(t, int64(7), bookings[0].UserID)
}
