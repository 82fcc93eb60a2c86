package event

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"

	"bookings/entity"
)

// TicketInventory is the inventory side of the saga: the only thing allowed
// to flip a ticket into RESERVED.
type TicketInventory interface {
	Reserve(ctx context.Context, eventID, ticketID, userID string) (entity.HoldConfirmation, error)
}

// BookingsRepository is the orchestrator side: the monotonic status writer.
type BookingsRepository interface {
	UpdateStatus(ctx context.Context, bookingID string, status entity.BookingStatus) (entity.Booking, error)
}

type Handler struct {
	eventBus        *cqrs.EventBus
	ticketInventory TicketInventory
	bookingsRepo    BookingsRepository
}

func NewHandler(
	eventBus *cqrs.EventBus,
	ticketInventory TicketInventory,
	bookingsRepo BookingsRepository,
) Handler {
	if eventBus == nil {
		panic("missing eventBus")
	}
	if ticketInventory == nil {
		panic("missing ticketInventory")
	}
	if bookingsRepo == nil {
		panic("missing bookingsRepo")
	}

	return Handler{
		eventBus:        eventBus,
		ticketInventory: ticketInventory,
		bookingsRepo:    bookingsRepo,
	}
}
