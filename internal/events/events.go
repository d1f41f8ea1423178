package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventReservationCreated       = "reservation_created"
	EventReservationStatusChanged = "reservation_status_changed"
	EventGalleryItemUploaded      = "gallery_item_uploaded"
	EventGalleryItemDeleted       = "gallery_item_deleted"
)

// ReservationPayload is the reservation snapshot carried by reservation events.
type ReservationPayload struct {
	ID              string    `json:"id"`
	ReferenceNumber string    `json:"reference_number"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Guests          string    `json:"guests"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Status          string    `json:"status"`
	PreviousStatus  string    `json:"previous_status,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type GalleryPayload struct {
	ID       string `json:"id"`
	Image    string `json:"image"`
	PublicID string `json:"public_id,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events. Handler errors are logged
// and never reach the publisher.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

func NewEventBus(logger *zerolog.Logger) *EventBus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers handler for every known event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	for _, t := range []string{
		EventReservationCreated,
		EventReservationStatusChanged,
		EventGalleryItemUploaded,
		EventGalleryItemDeleted,
	} {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("Event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

// Queue feeds a subscriber from a bounded buffer drained by one goroutine,
// so a stalled subscriber never blocks the publisher. Events that arrive
// while the buffer is full are dropped and logged.
type Queue struct {
	name    string
	handler EventHandler
	events  chan *Event
	logger  *zerolog.Logger
}

func NewQueue(name string, handler EventHandler, size int, logger *zerolog.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{name: name, handler: handler, events: make(chan *Event, size), logger: logger}
}

// Handle is an EventHandler. It never blocks.
func (q *Queue) Handle(event *Event) error {
	select {
	case q.events <- event:
		return nil
	default:
		return fmt.Errorf("%s queue full, dropped %s", q.name, event.Type)
	}
}

// Run delivers queued events until ctx is done.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-q.events:
			if err := q.handler(event); err != nil && q.logger != nil {
				q.logger.Warn().Err(err).Str("subscriber", q.name).Str("event", event.Type).Msg("Queued event handler failed")
			}
		}
	}
}
