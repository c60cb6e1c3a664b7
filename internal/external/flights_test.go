package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	apperrors "skybook/internal/errors"
	"skybook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flightServer is a stub remote flight service implementing the
// conditional seat-mutating PUT.
type flightServer struct {
	mu     sync.Mutex
	seats  int
	price  int64
	puts   int
	tokens []string
}

func (fs *flightServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/flight/1", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		fs.tokens = append(fs.tokens, r.Header.Get("Authorization"))

		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(models.Flight{
				ID:             1,
				FlightNumber:   "SB101",
				AvailableSeats: fs.seats,
				TicketPrice:    fs.price,
			})
		case http.MethodPut:
			var req updateFlightRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fs.puts++
			if req.ExpectedAvailableSeats != fs.seats {
				w.WriteHeader(http.StatusConflict)
				return
			}
			fs.seats = req.AvailableSeats
			w.WriteHeader(http.StatusOK)
		}
	})
	mux.HandleFunc("/flight/99", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	return mux
}

func newFlightClientForTest(t *testing.T, fs *flightServer) *FlightClient {
	srv := httptest.NewServer(fs.handler())
	t.Cleanup(srv.Close)
	return NewFlightClient(FlightConfig{BaseURL: srv.URL, ReserveRetries: 3})
}

func TestFetchFlight(t *testing.T) {
	fs := &flightServer{seats: 10, price: 2500}
	client := newFlightClientForTest(t, fs)

	flight, err := client.FetchFlight(context.Background(), "tok-123", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), flight.ID)
	assert.Equal(t, 10, flight.AvailableSeats)
	assert.Equal(t, int64(2500), flight.TicketPrice)
	assert.Equal(t, "Bearer tok-123", fs.tokens[0])
}

func TestFetchFlightNotFound(t *testing.T) {
	client := newFlightClientForTest(t, &flightServer{})

	_, err := client.FetchFlight(context.Background(), "tok", 99)
	assert.ErrorIs(t, err, apperrors.ErrFlightNotFound)
}

func TestReserveSeats(t *testing.T) {
	fs := &flightServer{seats: 5}
	client := newFlightClientForTest(t, fs)

	flight, err := client.ReserveSeats(context.Background(), "tok", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, flight.AvailableSeats)
	assert.Equal(t, 2, fs.seats)
}

func TestReserveSeatsInsufficientCapacityWritesNothing(t *testing.T) {
	fs := &flightServer{seats: 2}
	client := newFlightClientForTest(t, fs)

	_, err := client.ReserveSeats(context.Background(), "tok", 1, 3)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientCapacity)
	assert.Equal(t, 0, fs.puts)
	assert.Equal(t, 2, fs.seats)
}

func TestReserveSeatsRetriesOnStaleCondition(t *testing.T) {
	// First PUT loses the condition (another coordinator decremented in
	// between); the retry re-fetches and succeeds.
	var mu sync.Mutex
	seats := 10
	failedOnce := false
	mux := http.NewServeMux()
	mux.HandleFunc("/flight/1", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(models.Flight{ID: 1, AvailableSeats: seats})
			return
		}
		var req updateFlightRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !failedOnce {
			failedOnce = true
			seats = 8 // concurrent reservation won
			w.WriteHeader(http.StatusConflict)
			return
		}
		if req.ExpectedAvailableSeats != seats {
			w.WriteHeader(http.StatusConflict)
			return
		}
		seats = req.AvailableSeats
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := NewFlightClient(FlightConfig{BaseURL: srv.URL, ReserveRetries: 3})

	flight, err := client.ReserveSeats(context.Background(), "tok", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, flight.AvailableSeats)
	assert.Equal(t, 5, seats)
	assert.True(t, failedOnce)
}

func TestReleaseSeats(t *testing.T) {
	fs := &flightServer{seats: 2}
	client := newFlightClientForTest(t, fs)

	err := client.ReleaseSeats(context.Background(), "tok", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, fs.seats)
}

func TestReleaseSeatsFlightGone(t *testing.T) {
	client := newFlightClientForTest(t, &flightServer{})

	err := client.ReleaseSeats(context.Background(), "tok", 99, 1)
	assert.ErrorIs(t, err, apperrors.ErrFlightNotFound)
}

func TestReserveSeatsUpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	client := NewFlightClient(FlightConfig{BaseURL: srv.URL})

	_, err := client.ReserveSeats(context.Background(), "tok", 1, 1)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}

func TestReserveSeatsExhaustsRetriesAsConflict(t *testing.T) {
	// Always answer PUT with 409: every conditional write loses.
	mux := http.NewServeMux()
	mux.HandleFunc("/flight/1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(models.Flight{ID: 1, AvailableSeats: 10})
			return
		}
		w.WriteHeader(http.StatusConflict)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := NewFlightClient(FlightConfig{BaseURL: srv.URL, ReserveRetries: 2})

	_, err := client.ReserveSeats(context.Background(), "tok", 1, 1)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}
