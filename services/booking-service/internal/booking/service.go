package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/barbershop/libs/metrics"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrMissingFields  = errors.New("all fields are required")
	ErrInvalidEmail   = errors.New("invalid email")
	ErrUnknownBarber  = errors.New("unknown barber")
	ErrUnknownService = errors.New("unknown service")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidTime    = errors.New("time is not a bookable slot")
	ErrPastDate       = errors.New("cannot book a date in the past")
	ErrPastTime       = errors.New("that time has already passed today")
	ErrSlotTaken      = storage.ErrSlotTaken
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var tracer = otel.Tracer("github.com/md-rashed-zaman/barbershop/services/booking-service/internal/booking")

// Request is the visitor's booking form.
type Request struct {
	BarberID  string `json:"barber_id"`
	ServiceID string `json:"service_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type Config struct {
	Window   availability.Window
	Location *time.Location
	Now      func() time.Time
	NewID    func() string
}

type Service struct {
	store     storage.Store
	publisher events.Publisher
	metrics   *metrics.BookingMetrics
	logger    *slog.Logger
	slots     []string
	loc       *time.Location
	now       func() time.Time
	newID     func() string
}

func NewService(store storage.Store, publisher events.Publisher, m *metrics.BookingMetrics, logger *slog.Logger, cfg Config) (*Service, error) {
	if cfg.Window == (availability.Window{}) {
		cfg.Window = availability.DefaultWindow
	}
	if err := cfg.Window.Validate(); err != nil {
		return nil, err
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Service{
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		slots:     availability.GenerateSlots(cfg.Window),
		loc:       cfg.Location,
		now:       cfg.Now,
		newID:     cfg.NewID,
	}, nil
}

// Now is the current time on the shop's wall clock.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) Today() string {
	return s.Now().Format(availability.DateFormat)
}

// AllSlots returns the full grid of slot labels for one day.
func (s *Service) AllSlots() []string {
	return append([]string(nil), s.slots...)
}

// Slots returns the open slot labels for barberID on date. A request missing
// either value yields no slots rather than an error.
func (s *Service) Slots(ctx context.Context, barberID, date string) ([]string, error) {
	barberID = strings.TrimSpace(barberID)
	date = strings.TrimSpace(date)
	if barberID == "" || date == "" {
		return []string{}, nil
	}
	if !catalog.HasBarber(barberID) {
		return nil, ErrUnknownBarber
	}
	if !availability.ValidDate(date) {
		return nil, ErrInvalidDate
	}
	s.metrics.ObserveSlotQuery()

	booked, err := s.store.BookedTimes(ctx, barberID, date)
	if err != nil {
		return nil, fmt.Errorf("load booked times: %w", err)
	}
	return availability.Available(s.slots, booked, date, s.Now()), nil
}

// Create validates req and stores it. Checks run in a fixed order and the
// first failure is returned: required fields, email, catalog and grid
// membership, past date/time, then slot conflict.
func (s *Service) Create(ctx context.Context, req Request) (model.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.Create")
	defer span.End()

	b, err := s.validate(normalize(req))
	if err != nil {
		s.metrics.ObserveRejected(Reason(err))
		return model.Booking{}, err
	}
	span.SetAttributes(attribute.String("barber_id", b.BarberID), attribute.String("date", b.Date))

	if err := s.store.Add(ctx, b); err != nil {
		if storage.IsConflict(err) {
			s.metrics.ObserveRejected(Reason(ErrSlotTaken))
			return model.Booking{}, ErrSlotTaken
		}
		span.RecordError(err)
		return model.Booking{}, fmt.Errorf("store booking: %w", err)
	}
	s.metrics.ObserveCreated(b.BarberID)
	s.logger.Info("booking created", "booking_id", b.ID, "barber_id", b.BarberID, "date", b.Date, "time", b.Time)

	s.publish(ctx, b)
	return b, nil
}

// List returns the stored bookings matching f ordered by date and time.
func (s *Service) List(ctx context.Context, f model.Filter) ([]model.Booking, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return f.Apply(all), nil
}

func (s *Service) publish(ctx context.Context, b model.Booking) {
	evt, err := events.BookingBooked(b)
	if err == nil {
		err = s.publisher.Publish(ctx, evt)
	}
	s.metrics.ObservePublish(err)
	if err != nil {
		s.logger.Warn("booking event not published", "booking_id", b.ID, "err", err)
	}
}

func (s *Service) validate(req Request) (model.Booking, error) {
	if req.BarberID == "" || req.ServiceID == "" || req.Date == "" || req.Time == "" ||
		req.FirstName == "" || req.LastName == "" || req.Phone == "" || req.Email == "" {
		return model.Booking{}, ErrMissingFields
	}
	if !emailPattern.MatchString(req.Email) {
		return model.Booking{}, ErrInvalidEmail
	}
	if !catalog.HasBarber(req.BarberID) {
		return model.Booking{}, ErrUnknownBarber
	}
	if !catalog.HasService(req.ServiceID) {
		return model.Booking{}, ErrUnknownService
	}
	if !availability.ValidDate(req.Date) {
		return model.Booking{}, ErrInvalidDate
	}
	if !availability.Contains(s.slots, req.Time) {
		return model.Booking{}, ErrInvalidTime
	}

	now := s.Now()
	today := now.Format(availability.DateFormat)
	if req.Date < today {
		return model.Booking{}, ErrPastDate
	}
	if req.Date == today && req.Time < now.Format(availability.TimeFormat) {
		return model.Booking{}, ErrPastTime
	}

	return model.Booking{
		ID:        s.newID(),
		BarberID:  req.BarberID,
		ServiceID: req.ServiceID,
		Date:      req.Date,
		Time:      req.Time,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
		CreatedAt: s.now().UTC(),
	}, nil
}

func normalize(req Request) Request {
	return Request{
		BarberID:  strings.TrimSpace(req.BarberID),
		ServiceID: strings.TrimSpace(req.ServiceID),
		Date:      strings.TrimSpace(req.Date),
		Time:      strings.TrimSpace(req.Time),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     DigitsOnly(req.Phone),
		Email:     strings.TrimSpace(req.Email),
	}
}

// DigitsOnly strips everything but ASCII digits from a phone number.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Reason maps a Create error to a short metrics label.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingFields):
		return "missing_fields"
	case errors.Is(err, ErrInvalidEmail):
		return "invalid_email"
	case errors.Is(err, ErrUnknownBarber):
		return "unknown_barber"
	case errors.Is(err, ErrUnknownService):
		return "unknown_service"
	case errors.Is(err, ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, ErrInvalidTime):
		return "invalid_time"
	case errors.Is(err, ErrPastDate):
		return "past_date"
	case errors.Is(err, ErrPastTime):
		return "past_time"
	case errors.Is(err, ErrSlotTaken):
		return "slot_taken"
	default:
		return "internal"
	}
}
