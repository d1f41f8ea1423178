package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// channel is the subset of *amqp.Channel used by the forwarder.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPForwarder republishes bus events to a topic exchange, routed by event
// type. Subscribe it through a Queue to keep the broker off the request path.
type AMQPForwarder struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	timeout  time.Duration
	mu       sync.Mutex
	logger   *zerolog.Logger
}

func NewAMQPForwarder(url, exchange string, logger *zerolog.Logger) (*AMQPForwarder, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}

	return &AMQPForwarder{conn: conn, ch: ch, exchange: exchange, timeout: 5 * time.Second, logger: logger}, nil
}

// Handle is an EventHandler.
func (f *AMQPForwarder) Handle(event *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt.UTC(),
		Type:         event.Type,
		Body:         event.Payload,
	}

	// amqp channels are not safe for concurrent publishing
	f.mu.Lock()
	err := f.ch.PublishWithContext(ctx, f.exchange, "oden."+event.Type, false, false, pub)
	f.mu.Unlock()
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", event.Type, err)
	}

	f.logger.Debug().Str("event", event.Type).Msg("Event forwarded to broker")
	return nil
}

func (f *AMQPForwarder) Close() error {
	err := f.ch.Close()
	if f.conn != nil {
		if cerr := f.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
