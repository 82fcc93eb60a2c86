package entity

import (
	"time"
)

type TicketStatus string

const (
	TicketStatusAvailable TicketStatus = "AVAILABLE"
	TicketStatusReserved  TicketStatus = "RESERVED"
)

type Ticket struct {
	TicketID   string       `json:"ticket_id" db:"ticket_id"`
	EventID    string       `json:"event_id" db:"event_id"`
	Price      float64      `json:"price" db:"price"`
	TicketType string       `json:"ticket_type" db:"ticket_type"`
	Status     TicketStatus `json:"status" db:"status"`
	ExpiresAt  *time.Time   `json:"expires_at,omitempty" db:"expires_at"`
}

// IsAvailableAt applies lazy expiry: a RESERVED ticket whose hold has lapsed
// counts as available even though the stored status still says RESERVED.
// Every read path must go through here, there is no background sweep.
func (t Ticket) IsAvailableAt(now time.Time) bool {
	if t.Status == TicketStatusAvailable {
		return true
	}
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// HoldConfirmation is returned when a ticket is flipped to RESERVED.
type HoldConfirmation struct {
	TicketID  string    `json:"ticket_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
