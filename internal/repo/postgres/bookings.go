package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baybe/cleanbook/internal/domain/booking"
	"github.com/baybe/cleanbook/internal/observability"
)

type BookingsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewBookingsRepo(pool *pgxpool.Pool, prom *observability.Prom) *BookingsRepo {
	return &BookingsRepo{pool: pool, prom: prom}
}

func (r *BookingsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const bookingColumns = `id, user_id, first_name, last_name, email, phone, bedrooms, bathrooms,
	service_type, frequency, price, status, scheduled_date, created_at`

func scanBooking(row pgx.Row) (booking.Booking, error) {
	var (
		b     booking.Booking
		phone *string
	)

	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.FirstName,
		&b.LastName,
		&b.Email,
		&phone,
		&b.Bedrooms,
		&b.Bathrooms,
		&b.ServiceType,
		&b.Frequency,
		&b.Price,
		&b.Status,
		&b.ScheduledDate,
		&b.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return booking.Booking{}, booking.ErrNotFound
		}

		return booking.Booking{}, err
	}

	if phone != nil {
		b.Phone = *phone
	}

	return b, nil
}

func (r *BookingsRepo) Create(ctx context.Context, userID string, req booking.CreateBookingRequest) (booking.Booking, error) {
	b := booking.Booking{
		ID:            uuid.NewString(),
		UserID:        userID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		ServiceType:   req.ServiceType,
		Frequency:     req.Frequency,
		Price:         req.Price,
		Status:        booking.StatusPending,
		ScheduledDate: req.ScheduledDate,
		CreatedAt:     time.Now().UTC(),
	}

	err := r.observe("bookings.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO bookings (
				id, user_id, first_name, last_name, email, phone, bedrooms, bathrooms,
				service_type, frequency, price, status, scheduled_date, created_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8,
				$9, $10, $11, $12, $13, $14
			)`,
			b.ID, b.UserID, b.FirstName, b.LastName, b.Email, nullIfEmpty(b.Phone),
			b.Bedrooms, b.Bathrooms, b.ServiceType, b.Frequency, b.Price, b.Status,
			b.ScheduledDate, b.CreatedAt,
		)
		return err
	})

	if err != nil {
		return booking.Booking{}, err
	}

	return b, nil
}

// ListByUser returns the caller's bookings, newest first.
func (r *BookingsRepo) ListByUser(ctx context.Context, userID string) ([]booking.Booking, error) {
	out := []booking.Booking{}

	err := r.observe("bookings.list_by_user", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+bookingColumns+` FROM bookings
			 WHERE user_id = $1
			 ORDER BY created_at DESC`,
			userID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			b, err := scanBooking(rows)

			if err != nil {
				return err
			}

			out = append(out, b)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *BookingsRepo) GetByID(ctx context.Context, id string) (booking.Booking, error) {
	var b booking.Booking

	err := r.observe("bookings.get_by_id", func() error {
		var err error

		b, err = scanBooking(r.pool.QueryRow(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`,
			id,
		))
		return err
	})

	if err != nil {
		return booking.Booking{}, err
	}

	return b, nil
}

// UpdateStatus mutates the status of a booking owned by userID. Scoping the
// UPDATE by owner makes the ownership check atomic with the write.
func (r *BookingsRepo) UpdateStatus(ctx context.Context, id, userID, status string) (booking.Booking, error) {
	var b booking.Booking

	err := r.observe("bookings.update_status", func() error {
		var err error

		b, err = scanBooking(r.pool.QueryRow(ctx,
			`UPDATE bookings
			 SET status = $3
			 WHERE id = $1 AND user_id = $2
			 RETURNING `+bookingColumns,
			id, userID, status,
		))
		return err
	})

	if err != nil {
		return booking.Booking{}, err
	}

	return b, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
