package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"skybook/internal/database"
	apperrors "skybook/internal/errors"
	"skybook/internal/models"

	"github.com/lib/pq"
)

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a PENDING booking together with its passengers in one
// transaction.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bookings (user_id, flight_id, status, total_amount, pnr, booking_date)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, booking_date, created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		booking.UserID,
		booking.FlightID,
		booking.Status,
		booking.TotalAmount,
		booking.PNR,
	).Scan(&booking.ID, &booking.BookingDate, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return err
	}

	for i := range booking.Passengers {
		p := &booking.Passengers[i]
		p.BookingID = booking.ID
		if err := insertPassenger(ctx, tx, p); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID loads a booking with its passengers. Returns (nil, nil) when
// the booking does not exist.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `
		SELECT id, user_id, flight_id, status, total_amount, pnr,
		       booking_date, created_at, updated_at
		FROM bookings
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.FlightID,
		&booking.Status,
		&booking.TotalAmount,
		&booking.PNR,
		&booking.BookingDate,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	passengers, err := r.getPassengers(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	booking.Passengers = passengers

	return booking, nil
}

// GetByUserID returns all bookings owned by a user, passengers included,
// newest first.
func (r *BookingRepository) GetByUserID(ctx context.Context, userID int64) ([]models.Booking, error) {
	query := `
		SELECT id, user_id, flight_id, status, total_amount, pnr,
		       booking_date, created_at, updated_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC`

	return r.queryBookings(ctx, query, userID)
}

// List returns bookings for the admin listing, optionally filtered by
// status, with passengers attached.
func (r *BookingRepository) List(ctx context.Context, status string, page, pageSize int) ([]models.Booking, error) {
	query := `
		SELECT id, user_id, flight_id, status, total_amount, pnr,
		       booking_date, created_at, updated_at
		FROM bookings`
	args := []interface{}{}
	argIndex := 1

	if status != "" {
		query += fmt.Sprintf(" WHERE status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, pageSize, offset)
	}

	return r.queryBookings(ctx, query, args...)
}

// Delete removes a booking; passengers go with it via ON DELETE CASCADE.
// Returns (false, nil) when nothing matched.
func (r *BookingRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// PNRExists reports whether a confirmation code is already assigned.
func (r *BookingRepository) PNRExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bookings WHERE pnr = $1)`, code).Scan(&exists)
	return exists, err
}

// Confirm commits the PENDING -> CONFIRMED transition: status, the
// derived total amount, the assigned PNR and every passenger status in
// one transaction. The write is conditional on both the status and the
// updated_at observed when the saga loaded the booking, so a saga that
// ran past its lock TTL and raced a passenger edit loses with
// ErrConflict instead of confirming a booking it no longer knows.
func (r *BookingRepository) Confirm(ctx context.Context, id int64, totalAmount int64, pnrCode string, loadedAt time.Time) error {
	return r.transition(ctx, id,
		models.BookingStatusPending, models.BookingStatusConfirmed,
		func(ctx context.Context, tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `
				UPDATE bookings
				SET status = $1, total_amount = $2, pnr = $3, updated_at = NOW()
				WHERE id = $4 AND status = $5 AND updated_at = $6`,
				models.BookingStatusConfirmed, totalAmount, pnrCode, id, models.BookingStatusPending, loadedAt)
			if err != nil {
				return err
			}
			return requireOneRow(res)
		})
}

// Cancel commits the CONFIRMED -> CANCELLED transition. Total amount
// and PNR stay untouched as the audit record of what was charged.
func (r *BookingRepository) Cancel(ctx context.Context, id int64) error {
	return r.transition(ctx, id,
		models.BookingStatusConfirmed, models.BookingStatusCancelled,
		func(ctx context.Context, tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx, `
				UPDATE bookings
				SET status = $1, updated_at = NOW()
				WHERE id = $2 AND status = $3`,
				models.BookingStatusCancelled, id, models.BookingStatusConfirmed)
			if err != nil {
				return err
			}
			return requireOneRow(res)
		})
}

func (r *BookingRepository) transition(ctx context.Context, id int64, from, to models.BookingStatus, updateBooking func(context.Context, *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := updateBooking(ctx, tx); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE passengers SET status = $1, updated_at = NOW() WHERE booking_id = $2`,
		to, id)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ApplyPassengerChanges applies a reconciled change set atomically:
// removals first, then in-place updates, then inserts. The guard UPDATE
// makes the write conditional on the booking still being PENDING and
// still carrying the updated_at the change set was reconciled against.
func (r *BookingRepository) ApplyPassengerChanges(ctx context.Context, bookingID int64, loadedAt time.Time, changes models.PassengerChangeSet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET updated_at = NOW() WHERE id = $1 AND status = $2 AND updated_at = $3`,
		bookingID, models.BookingStatusPending, loadedAt)
	if err != nil {
		return err
	}
	if err := requireOneRow(res); err != nil {
		return err
	}

	if len(changes.RemoveIDs) > 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM passengers WHERE booking_id = $1 AND id = ANY($2)`,
			bookingID, pq.Array(changes.RemoveIDs))
		if err != nil {
			return err
		}
	}

	for _, p := range changes.Update {
		res, err := tx.ExecContext(ctx, `
			UPDATE passengers
			SET full_name = $1, age = $2, gender = $3, updated_at = NOW()
			WHERE id = $4 AND booking_id = $5`,
			p.FullName, p.Age, p.Gender, p.ID, bookingID)
		if err != nil {
			return err
		}
		if err := requireOneRow(res); err != nil {
			return err
		}
	}

	for i := range changes.Create {
		p := &changes.Create[i]
		p.BookingID = bookingID
		if err := insertPassenger(ctx, tx, p); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...interface{}) ([]models.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var booking models.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.UserID,
			&booking.FlightID,
			&booking.Status,
			&booking.TotalAmount,
			&booking.PNR,
			&booking.BookingDate,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bookings {
		passengers, err := r.getPassengers(ctx, bookings[i].ID)
		if err != nil {
			return nil, err
		}
		bookings[i].Passengers = passengers
	}

	return bookings, nil
}

func (r *BookingRepository) getPassengers(ctx context.Context, bookingID int64) ([]models.Passenger, error) {
	query := `
		SELECT id, booking_id, full_name, age, gender, status, created_at, updated_at
		FROM passengers
		WHERE booking_id = $1
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passengers []models.Passenger
	for rows.Next() {
		var p models.Passenger
		err := rows.Scan(
			&p.ID,
			&p.BookingID,
			&p.FullName,
			&p.Age,
			&p.Gender,
			&p.Status,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		passengers = append(passengers, p)
	}

	return passengers, rows.Err()
}

func insertPassenger(ctx context.Context, tx *sql.Tx, p *models.Passenger) error {
	return tx.QueryRowContext(ctx, `
		INSERT INTO passengers (booking_id, full_name, age, gender, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		p.BookingID, p.FullName, p.Age, p.Gender, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func requireOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}
