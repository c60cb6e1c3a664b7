package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "skybook/internal/errors"
	"skybook/internal/logger"
	"skybook/internal/models"
)

// FlightClient is a typed facade over the remote flight service. Every
// call forwards the caller's bearer credential unchanged and runs under
// the client's bounded timeout.
type FlightClient struct {
	baseURL        string
	reserveRetries int
	httpClient     *http.Client
}

type FlightConfig struct {
	BaseURL        string
	Timeout        time.Duration
	ReserveRetries int
}

// updateFlightRequest is the seat-mutating PUT body. The remote service
// applies the write only when its current availability still equals
// ExpectedAvailableSeats, answering 409 otherwise.
type updateFlightRequest struct {
	AvailableSeats         int `json:"available_seats"`
	ExpectedAvailableSeats int `json:"expected_available_seats"`
}

func NewFlightClient(cfg FlightConfig) *FlightClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ReserveRetries == 0 {
		cfg.ReserveRetries = 3
	}

	return &FlightClient{
		baseURL:        cfg.BaseURL,
		reserveRetries: cfg.ReserveRetries,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FetchFlight returns the remote flight or ErrFlightNotFound.
func (fc *FlightClient) FetchFlight(ctx context.Context, token string, flightID int64) (*models.Flight, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/flight/%d", fc.baseURL, flightID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := fc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch flight %d: %v", apperrors.ErrUpstreamUnavailable, flightID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperrors.ErrFlightNotFound
	default:
		return nil, fmt.Errorf("%w: fetch flight %d: unexpected status code %d", apperrors.ErrUpstreamUnavailable, flightID, resp.StatusCode)
	}

	var flight models.Flight
	if err := json.NewDecoder(resp.Body).Decode(&flight); err != nil {
		return nil, fmt.Errorf("%w: decode flight %d: %v", apperrors.ErrUpstreamUnavailable, flightID, err)
	}

	return &flight, nil
}

// ReserveSeats decrements the remote availability by count using a
// fetch-then-conditional-write loop. The availability read at fetch
// time is the freshness token; a failed condition is retried with fresh
// data up to the bounded retry count and then surfaced as ErrConflict.
// Insufficient remaining capacity fails without any write.
func (fc *FlightClient) ReserveSeats(ctx context.Context, token string, flightID int64, count int) (*models.Flight, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: seat count must be positive", apperrors.ErrInvalidRequest)
	}

	for attempt := 0; attempt < fc.reserveRetries; attempt++ {
		flight, err := fc.FetchFlight(ctx, token, flightID)
		if err != nil {
			return nil, err
		}

		if flight.AvailableSeats < count {
			return nil, apperrors.ErrInsufficientCapacity
		}

		err = fc.putSeats(ctx, token, flightID, flight.AvailableSeats-count, flight.AvailableSeats)
		if err == nil {
			flight.AvailableSeats -= count
			return flight, nil
		}
		if err != errConditionFailed {
			return nil, err
		}

		logger.WithContext(ctx).Warn("Seat reservation lost the conditional write, retrying",
			"flight_id", flightID, "attempt", attempt+1)
	}

	return nil, fmt.Errorf("%w: flight %d reservation contended", apperrors.ErrConflict, flightID)
}

// ReleaseSeats increments the remote availability by count, with the
// same conditional-write discipline as ReserveSeats.
func (fc *FlightClient) ReleaseSeats(ctx context.Context, token string, flightID int64, count int) error {
	if count <= 0 {
		return fmt.Errorf("%w: seat count must be positive", apperrors.ErrInvalidRequest)
	}

	for attempt := 0; attempt < fc.reserveRetries; attempt++ {
		flight, err := fc.FetchFlight(ctx, token, flightID)
		if err != nil {
			return err
		}

		err = fc.putSeats(ctx, token, flightID, flight.AvailableSeats+count, flight.AvailableSeats)
		if err == nil {
			return nil
		}
		if err != errConditionFailed {
			return err
		}

		logger.WithContext(ctx).Warn("Seat release lost the conditional write, retrying",
			"flight_id", flightID, "attempt", attempt+1)
	}

	return fmt.Errorf("%w: flight %d release contended", apperrors.ErrConflict, flightID)
}

// errConditionFailed is internal to the CAS loop: the remote refused the
// write because the expected availability was stale.
var errConditionFailed = fmt.Errorf("seat count condition failed")

func (fc *FlightClient) putSeats(ctx context.Context, token string, flightID int64, seats, expected int) error {
	body, err := json.Marshal(updateFlightRequest{
		AvailableSeats:         seats,
		ExpectedAvailableSeats: expected,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/flight/%d", fc.baseURL, flightID), bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := fc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: update flight %d: %v", apperrors.ErrUpstreamUnavailable, flightID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusConflict, http.StatusPreconditionFailed:
		return errConditionFailed
	case http.StatusNotFound:
		return apperrors.ErrFlightNotFound
	default:
		return fmt.Errorf("%w: update flight %d: unexpected status code %d", apperrors.ErrUpstreamUnavailable, flightID, resp.StatusCode)
	}
}
