package entity

import (
	"time"
)

type Payment struct {
	PaymentID string    `json:"payment_id" db:"payment_id"`
	BookingID string    `json:"booking_id" db:"booking_id"`
	PaidAt    time.Time `json:"paid_at" db:"paid_at"`
}
