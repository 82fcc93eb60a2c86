package event

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"bookings/entity"
)

// The three handlers below drive the booking state machine. All writes go
// through the monotonic UpdateStatus, so a replayed or out-of-order message
// leaves the booking where it is instead of moving it backward.

func (h Handler) AwaitPaymentHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"AwaitPaymentHandler",
		func(ctx context.Context, event *entity.TicketReservationConfirmed) error {
			log.FromContext(ctx).
				WithField("booking_id", event.BookingID).
				Info("Reservation confirmed, awaiting payment")

			_, err := h.bookingsRepo.UpdateStatus(ctx, event.BookingID, entity.BookingStatusWaitingForPayment)
			if err != nil {
				return fmt.Errorf("could not move booking to %s: %w", entity.BookingStatusWaitingForPayment, err)
			}
			return nil
		},
	)
}

func (h Handler) CancelBookingHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"CancelBookingHandler",
		func(ctx context.Context, event *entity.TicketReservationFailed) error {
			log.FromContext(ctx).
				WithField("booking_id", event.BookingID).
				WithField("reason", event.Reason).
				Info("Reservation failed, cancelling booking")

			_, err := h.bookingsRepo.UpdateStatus(ctx, event.BookingID, entity.BookingStatusCancelled)
			if err != nil {
				return fmt.Errorf("could not cancel booking: %w", err)
			}
			return nil
		},
	)
}

func (h Handler) ConfirmBookingHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"ConfirmBookingHandler",
		func(ctx context.Context, event *entity.PaymentConfirmed) error {
			log.FromContext(ctx).
				WithField("booking_id", event.BookingID).
				WithField("payment_id", event.PaymentID).
				Info("Payment confirmed, confirming booking")

			_, err := h.bookingsRepo.UpdateStatus(ctx, event.BookingID, entity.BookingStatusConfirmed)
			if err != nil {
				return fmt.Errorf("could not confirm booking: %w", err)
			}
			return nil
		},
	)
}
