package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bookings/entity"
	"bookings/pubsub/bus"
	"bookings/pubsub/outbox"
)

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Store persists a new PENDING booking and publishes TicketReservationRequested
// in the same transaction, through the outbox. Either both happen or neither:
// a booking can never exist without its reservation request and a request can
// never be sent for a booking that was not persisted.
func (r *PostgresRepository) Store(ctx context.Context, booking entity.Booking) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			err = errors.Join(err, rollbackErr)
			return
		}
		err = tx.Commit()
	}()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO bookings (booking_id, user_id, event_id, ticket_id, status, booked_at, detail)
		VALUES (:booking_id, :user_id, :event_id, :ticket_id, :status, :booked_at, :detail)
	`, booking)
	if err != nil {
		return fmt.Errorf("could not add booking: %w", err)
	}

	outboxPublisher, err := outbox.NewPublisherForTx(ctx, tx)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}

	eventBus, err := bus.NewEventBus(outboxPublisher)
	if err != nil {
		return fmt.Errorf("could not create event bus: %w", err)
	}

	err = eventBus.Publish(ctx, entity.TicketReservationRequested{
		Header:    entity.NewEventHeader(),
		TicketID:  booking.TicketID,
		EventID:   booking.EventID,
		UserID:    booking.UserID,
		BookingID: booking.BookingID,
	})
	if err != nil {
		return fmt.Errorf("could not publish event: %w", err)
	}

	return err
}

func (r *PostgresRepository) FindByID(ctx context.Context, bookingID string) (entity.Booking, error) {
	var booking entity.Booking
	err := r.db.GetContext(ctx, &booking, `
		SELECT booking_id, user_id, event_id, ticket_id, status, booked_at, detail
		FROM bookings
		WHERE booking_id = $1
	`, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Booking{}, entity.ErrNotFound
	}
	return booking, err
}

func (r *PostgresRepository) FindAll(ctx context.Context) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT booking_id, user_id, event_id, ticket_id, status, booked_at, detail
		FROM bookings
	`)
	return bookings, err
}

func (r *PostgresRepository) FindByUser(ctx context.Context, userID string) ([]entity.Booking, error) {
	var bookings []entity.Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT booking_id, user_id, event_id, ticket_id, status, booked_at, detail
		FROM bookings
		WHERE user_id = $1
	`, userID)
	return bookings, err
}

// CountConfirmedForTicket reports how many bookings referencing the ticket
// have reached CONFIRMED. At most one ever should.
func (r *PostgresRepository) CountConfirmedForTicket(ctx context.Context, ticketID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM bookings WHERE ticket_id = $1 AND status = $2
	`, ticketID, entity.BookingStatusConfirmed)
	return count, err
}

// UpdateStatus is the monotonic status writer used by the message handlers.
// The write applies only when the booking's current status allows a
// transition to the target; anything else (a replayed message, an
// out-of-order delivery, a write out of a terminal state) is ignored and the
// unchanged booking is returned.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, bookingID string, status entity.BookingStatus) (entity.Booking, error) {
	allowedFrom := status.AllowedFrom()
	if len(allowedFrom) > 0 {
		query, args, err := sqlx.In(`
			UPDATE bookings SET status = ? WHERE booking_id = ? AND status IN (?)
		`, status, bookingID, allowedFrom)
		if err != nil {
			return entity.Booking{}, fmt.Errorf("could not build status update query: %w", err)
		}

		_, err = r.db.ExecContext(ctx, r.db.Rebind(query), args...)
		if err != nil {
			return entity.Booking{}, fmt.Errorf("could not update booking status: %w", err)
		}
	}

	return r.FindByID(ctx, bookingID)
}

// Update overwrites the mutable booking fields that are set. Used by the
// direct API, not by the saga; the status still has to be a known one.
func (r *PostgresRepository) Update(ctx context.Context, bookingID string, status *entity.BookingStatus, detail *string) (entity.Booking, error) {
	booking, err := r.FindByID(ctx, bookingID)
	if err != nil {
		return entity.Booking{}, err
	}

	if status != nil {
		booking.Status = *status
	}
	if detail != nil {
		booking.Detail = *detail
	}

	_, err = r.db.NamedExecContext(ctx, `
		UPDATE bookings SET status = :status, detail = :detail WHERE booking_id = :booking_id
	`, booking)
	if err != nil {
		return entity.Booking{}, fmt.Errorf("could not update booking: %w", err)
	}

	return booking, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, bookingID string) (entity.Booking, error) {
	booking, err := r.FindByID(ctx, bookingID)
	if err != nil {
		return entity.Booking{}, err
	}

	_, err = r.db.ExecContext(ctx, `DELETE FROM bookings WHERE booking_id = $1`, bookingID)
	if err != nil {
		return entity.Booking{}, fmt.Errorf("could not delete booking: %w", err)
	}

	return booking, nil
}
