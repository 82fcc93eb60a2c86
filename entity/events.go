package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

// Event is implemented by everything published on the bus. PartitionKey
// groups all messages of one booking so a keyed transport can deliver them
// in publish order.
type Event interface {
	PartitionKey() string
}

type TicketReservationRequested struct {
	Header    EventHeader `json:"header"`
	TicketID  string      `json:"ticket_id"`
	EventID   string      `json:"event_id"`
	UserID    string      `json:"user_id"`
	BookingID string      `json:"booking_id"`
}

func (e TicketReservationRequested) PartitionKey() string {
	return e.BookingID
}

type TicketReservationConfirmed struct {
	Header    EventHeader `json:"header"`
	BookingID string      `json:"booking_id"`
}

func (e TicketReservationConfirmed) PartitionKey() string {
	return e.BookingID
}

type TicketReservationFailed struct {
	Header    EventHeader `json:"header"`
	BookingID string      `json:"booking_id"`
	Reason    string      `json:"reason"`
}

func (e TicketReservationFailed) PartitionKey() string {
	return e.BookingID
}

type PaymentConfirmed struct {
	Header    EventHeader `json:"header"`
	PaymentID string      `json:"payment_id"`
	BookingID string      `json:"booking_id"`
}

func (e PaymentConfirmed) PartitionKey() string {
	return e.BookingID
}
