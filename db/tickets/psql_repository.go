package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bookings/entity"
)

// HoldDuration is how long a reservation keeps a ticket off the market.
// Expiry is lazy: the stored status stays RESERVED and every read derives
// availability from expires_at.
const HoldDuration = 10 * time.Minute

type PostgresRepository struct {
	db           *sqlx.DB
	holdDuration time.Duration
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db, holdDuration: HoldDuration}
}

// AddBatch creates quantity AVAILABLE tickets for the event. Only admins and
// organizers may create tickets.
func (r *PostgresRepository) AddBatch(ctx context.Context, eventID string, quantity int, ticketType string, price float64, role string) (int, error) {
	if role != "ADMIN" && role != "ORGANIZER" {
		return 0, entity.InvalidActionError{Reason: "only admins or organizers can create tickets for events"}
	}
	if quantity <= 0 {
		return 0, entity.ValidationError{Reason: "invalid ticket quantity"}
	}
	if price <= 0 {
		return 0, entity.ValidationError{Reason: "invalid ticket price"}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			err = errors.Join(err, rollbackErr)
			return
		}
		err = tx.Commit()
	}()

	for i := 0; i < quantity; i++ {
		ticket := entity.Ticket{
			TicketID:   uuid.NewString(),
			EventID:    eventID,
			Price:      price,
			TicketType: ticketType,
			Status:     entity.TicketStatusAvailable,
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO tickets (ticket_id, event_id, price, ticket_type, status)
			VALUES (:ticket_id, :event_id, :price, :ticket_type, :status)
		`, ticket)
		if err != nil {
			return 0, fmt.Errorf("could not add ticket: %w", err)
		}
	}

	return quantity, err
}

func (r *PostgresRepository) Get(ctx context.Context, eventID, ticketID string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := r.db.GetContext(ctx, &ticket, `
		SELECT ticket_id, event_id, price, ticket_type, status, expires_at
		FROM tickets
		WHERE ticket_id = $1 AND event_id = $2
	`, ticketID, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Ticket{}, entity.ErrNotFound
	}
	return ticket, err
}

func (r *PostgresRepository) FindByEvent(ctx context.Context, eventID string) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT ticket_id, event_id, price, ticket_type, status, expires_at
		FROM tickets
		WHERE event_id = $1
	`, eventID)
	return tickets, err
}

// IsAvailable reports whether the ticket can currently be reserved. It applies
// the same derivation as Reserve: AVAILABLE, or RESERVED with a lapsed hold.
func (r *PostgresRepository) IsAvailable(ctx context.Context, eventID, ticketID string) (bool, error) {
	ticket, err := r.Get(ctx, eventID, ticketID)
	if err != nil {
		return false, err
	}
	return ticket.IsAvailableAt(time.Now()), nil
}

// Reserve re-validates availability and flips the ticket to RESERVED in a
// single transaction with the row locked, so two concurrent calls for the
// same ticket cannot both observe it available. This is the only code path
// that puts a ticket into RESERVED.
func (r *PostgresRepository) Reserve(ctx context.Context, eventID, ticketID, userID string) (entity.HoldConfirmation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return entity.HoldConfirmation{}, fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			rollbackErr := tx.Rollback()
			err = errors.Join(err, rollbackErr)
			return
		}
		err = tx.Commit()
	}()

	var ticket entity.Ticket
	err = tx.GetContext(ctx, &ticket, `
		SELECT ticket_id, event_id, price, ticket_type, status, expires_at
		FROM tickets
		WHERE ticket_id = $1 AND event_id = $2
		FOR UPDATE
	`, ticketID, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		err = entity.ErrNotFound
		return entity.HoldConfirmation{}, err
	}
	if err != nil {
		return entity.HoldConfirmation{}, fmt.Errorf("could not get ticket: %w", err)
	}

	now := time.Now()
	if !ticket.IsAvailableAt(now) {
		err = entity.InvalidActionError{Reason: "ticket is not available for reservation"}
		return entity.HoldConfirmation{}, err
	}

	expiresAt := now.Add(r.holdDuration).UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE tickets
		SET status = $2, expires_at = $3
		WHERE ticket_id = $1
	`, ticketID, entity.TicketStatusReserved, expiresAt)
	if err != nil {
		return entity.HoldConfirmation{}, fmt.Errorf("could not reserve ticket: %w", err)
	}

	return entity.HoldConfirmation{
		TicketID:  ticketID,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}, err
}

// SetHold overwrites a ticket's status and expiry directly. Test helper for
// staging holds in a known state; production reservations go through Reserve.
func (r *PostgresRepository) SetHold(ctx context.Context, ticketID string, status entity.TicketStatus, expiresAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET status = $2, expires_at = $3
		WHERE ticket_id = $1
	`, ticketID, status, expiresAt)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return entity.ErrNotFound
	}

	return nil
}
