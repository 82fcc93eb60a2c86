package payments

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

// Store persists the payment and publishes PaymentConfirmed in the same
// transaction, through the outbox.
func (r *PostgresRepository) Store(ctx context.Context, payment entity.Payment) error {
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
		INSERT INTO payments (payment_id, booking_id, paid_at)
		VALUES (:payment_id, :booking_id, :paid_at)
	`, payment)
	if err != nil {
		return fmt.Errorf("could not add payment: %w", err)
	}

	outboxPublisher, err := outbox.NewPublisherForTx(ctx, tx)
	if err != nil {
		return fmt.Errorf("could not create outbox publisher: %w", err)
	}

	eventBus, err := bus.NewEventBus(outboxPublisher)
	if err != nil {
		return fmt.Errorf("could not create event bus: %w", err)
	}

	err = eventBus.Publish(ctx, entity.PaymentConfirmed{
		Header:    entity.NewEventHeader(),
		PaymentID: payment.PaymentID,
		BookingID: payment.BookingID,
	})
	if err != nil {
		return fmt.Errorf("could not publish event: %w", err)
	}

	return err
}

func (r *PostgresRepository) FindByID(ctx context.Context, paymentID string) (entity.Payment, error) {
	var payment entity.Payment
	err := r.db.GetContext(ctx, &payment, `
		SELECT payment_id, booking_id, paid_at FROM payments WHERE payment_id = $1
	`, paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Payment{}, entity.ErrNotFound
	}
	return payment, err
}

func (r *PostgresRepository) FindAll(ctx context.Context) ([]entity.Payment, error) {
	var payments []entity.Payment
	err := r.db.SelectContext(ctx, &payments, `
		SELECT payment_id, booking_id, paid_at FROM payments
	`)
	return payments, err
}

func (r *PostgresRepository) FindByBooking(ctx context.Context, bookingID string) ([]entity.Payment, error) {
	var payments []entity.Payment
	err := r.db.SelectContext(ctx, &payments, `
		SELECT payment_id, booking_id, paid_at FROM payments WHERE booking_id = $1
	`, bookingID)
	return payments, err
}
