package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/barbershop/libs/kafkax"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/model"
	"github.com/segmentio/kafka-go"
)

const TopicBookingBooked = "booking.appointment.booked.v1"

// Event is the envelope handed to a Publisher.
type Event struct {
	ID          string
	Type        string
	AggregateID string
	Payload     []byte
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// BookingBooked builds the event emitted after a booking is stored.
func BookingBooked(b model.Booking) (Event, error) {
	payload, err := json.Marshal(map[string]any{
		"booking_id": b.ID,
		"barber_id":  b.BarberID,
		"service_id": b.ServiceID,
		"date":       b.Date,
		"time":       b.Time,
		"first_name": b.FirstName,
		"last_name":  b.LastName,
		"phone":      b.Phone,
		"email":      b.Email,
		"created_at": b.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:          uuid.NewString(),
		Type:        TopicBookingBooked,
		AggregateID: b.ID,
		Payload:     payload,
	}, nil
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  messageWriter
	logger  *slog.Logger
	timeout time.Duration
}

type KafkaConfig struct {
	Brokers string
	Timeout time.Duration
}

// NewKafkaPublisher returns a NoopPublisher when no brokers are configured.
func NewKafkaPublisher(logger *slog.Logger, cfg KafkaConfig) Publisher {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		logger.Warn("booking events disabled (no kafka brokers configured)")
		return NoopPublisher{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           cfg.Timeout,
	}
	return newKafkaPublisher(w, logger, cfg.Timeout)
}

func newKafkaPublisher(w messageWriter, logger *slog.Logger, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{writer: w, logger: logger, timeout: timeout}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafkax.NewMessage(evt.ID, evt.Type, evt.AggregateID, evt.Payload)
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}
	p.logger.Debug("event published", "event_id", evt.ID, "event_type", evt.Type)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
