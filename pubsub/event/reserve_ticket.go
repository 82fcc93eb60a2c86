package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"bookings/entity"
	"bookings/metrics"
)

// ReserveTicketHandler runs the inventory's check-then-set when a reservation
// is requested. A ticket that turns out unavailable or unknown is a permanent
// outcome and fails the booking; any other error is returned so the message
// is retried.
func (h Handler) ReserveTicketHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"ReserveTicketHandler",
		func(ctx context.Context, event *entity.TicketReservationRequested) error {
			log.FromContext(ctx).
				WithField("booking_id", event.BookingID).
				WithField("ticket_id", event.TicketID).
				Info("Reserving ticket")

			_, err := h.ticketInventory.Reserve(ctx, event.EventID, event.TicketID, event.UserID)
			if err != nil {
				var invalidAction entity.InvalidActionError
				if errors.As(err, &invalidAction) || errors.Is(err, entity.ErrNotFound) {
					metrics.ReservationConflicts.Inc()

					return h.eventBus.Publish(ctx, entity.TicketReservationFailed{
						Header:    entity.NewEventHeaderWithIdempotencyKey(event.Header.IdempotencyKey),
						BookingID: event.BookingID,
						Reason:    err.Error(),
					})
				}

				return fmt.Errorf("could not reserve ticket: %w", err)
			}

			metrics.TicketsReserved.Inc()

			return h.eventBus.Publish(ctx, entity.TicketReservationConfirmed{
				Header:    entity.NewEventHeaderWithIdempotencyKey(event.Header.IdempotencyKey),
				BookingID: event.BookingID,
			})
		},
	)
}
