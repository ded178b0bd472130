package storage

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/model"
)

// ErrSlotTaken is returned by Add when the barber already has a booking at
// that date and time.
var ErrSlotTaken = errors.New("time slot already booked")

// Store persists bookings. Add must check for and reject a duplicate slot
// atomically with the write.
type Store interface {
	List(ctx context.Context) ([]model.Booking, error)
	BookedTimes(ctx context.Context, barberID, date string) ([]string, error)
	Add(ctx context.Context, b model.Booking) error
	Ping(ctx context.Context) error
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrSlotTaken)
}
