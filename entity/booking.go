package entity

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending           BookingStatus = "PENDING"
	BookingStatusWaitingForPayment BookingStatus = "WAITING_FOR_PAYMENT"
	BookingStatusConfirmed         BookingStatus = "CONFIRMED"
	BookingStatusCancelled         BookingStatus = "CANCELLED"
)

// ParseBookingStatus validates a status string at a boundary. Statuses cross
// the HTTP and message boundaries as strings but are never stored or applied
// without passing through here.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case BookingStatusPending, BookingStatusWaitingForPayment, BookingStatusConfirmed, BookingStatusCancelled:
		return BookingStatus(s), nil
	}
	return "", ValidationError{Reason: fmt.Sprintf("unknown booking status: %q", s)}
}

// AllowedFrom returns the statuses a booking must currently be in for a
// transition to s to apply. The graph is
// PENDING -> WAITING_FOR_PAYMENT -> CONFIRMED and PENDING -> CANCELLED;
// CONFIRMED and CANCELLED are terminal.
func (s BookingStatus) AllowedFrom() []BookingStatus {
	switch s {
	case BookingStatusWaitingForPayment:
		return []BookingStatus{BookingStatusPending}
	case BookingStatusConfirmed:
		return []BookingStatus{BookingStatusWaitingForPayment}
	case BookingStatusCancelled:
		return []BookingStatus{BookingStatusPending}
	}
	return nil
}

type Booking struct {
	BookingID string        `json:"booking_id" db:"booking_id"`
	UserID    string        `json:"user_id" db:"user_id"`
	EventID   string        `json:"event_id" db:"event_id"`
	TicketID  string        `json:"ticket_id" db:"ticket_id"`
	Status    BookingStatus `json:"status" db:"status"`
	BookedAt  time.Time     `json:"booked_at" db:"booked_at"`
	Detail    string        `json:"detail" db:"detail"`
}
