package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = `
CREATE TABLE IF NOT EXISTS tickets (
	ticket_id UUID PRIMARY KEY,
	event_id UUID NOT NULL,
	price NUMERIC(10, 2) NOT NULL,
	ticket_type VARCHAR(255) NOT NULL,
	status VARCHAR(32) NOT NULL,
	expires_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS tickets_event_id_idx ON tickets (event_id);

CREATE TABLE IF NOT EXISTS bookings (
	booking_id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	event_id UUID NOT NULL,
	ticket_id UUID NOT NULL,
	status VARCHAR(32) NOT NULL,
	booked_at TIMESTAMPTZ NOT NULL,
	detail TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS bookings_user_id_idx ON bookings (user_id);

CREATE TABLE IF NOT EXISTS payments (
	payment_id UUID PRIMARY KEY,
	booking_id UUID NOT NULL UNIQUE,
	paid_at TIMESTAMPTZ NOT NULL
);
`

func InitializeDatabaseSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("could not initialize database schema: %w", err)
	}
	return nil
}
