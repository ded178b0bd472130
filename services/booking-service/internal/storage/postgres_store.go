package storage

import (
	"context"
	_ "embed"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is the subset of *pgxpool.Pool the store needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

type PostgresStore struct {
	db DBTX
}

func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the bookings table and its slot index when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

func (s *PostgresStore) List(ctx context.Context) ([]model.Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, barber_id, service_id, booking_date, booking_time,
			first_name, last_name, phone, email, created_at
		FROM bookings
		ORDER BY booking_date ASC, booking_time ASC, created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(
			&b.ID,
			&b.BarberID,
			&b.ServiceID,
			&b.Date,
			&b.Time,
			&b.FirstName,
			&b.LastName,
			&b.Phone,
			&b.Email,
			&b.CreatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}

func (s *PostgresStore) BookedTimes(ctx context.Context, barberID, date string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT booking_time
		FROM bookings
		WHERE barber_id = $1 AND booking_date = $2
		ORDER BY booking_time ASC
	`, barberID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return times, nil
}

// Add relies on bookings_slot_uniq to reject a second booking for the slot.
func (s *PostgresStore) Add(ctx context.Context, b model.Booking) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings
			(id, barber_id, service_id, booking_date, booking_time, first_name, last_name, phone, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, b.ID, b.BarberID, b.ServiceID, b.Date, b.Time, b.FirstName, b.LastName, b.Phone, b.Email, b.CreatedAt)
	if isUniqueViolation(err) {
		return ErrSlotTaken
	}
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
