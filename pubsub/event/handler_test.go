package event_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookings/entity"
	"bookings/gateway"
	"bookings/pubsub/bus"
	"bookings/pubsub/event"
)

type bookingsRepoStub struct {
	statuses map[string]entity.BookingStatus
}

func (s *bookingsRepoStub) UpdateStatus(ctx context.Context, bookingID string, status entity.BookingStatus) (entity.Booking, error) {
	if s.statuses == nil {
		s.statuses = map[string]entity.BookingStatus{}
	}
	s.statuses[bookingID] = status
	return entity.Booking{BookingID: bookingID, Status: status}, nil
}

func TestReserveTicketHandler(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 10}, watermill.NopLogger{})
	defer pubSub.Close()

	confirmed, err := pubSub.Subscribe(ctx, "events.TicketReservationConfirmed")
	require.NoError(t, err)
	failed, err := pubSub.Subscribe(ctx, "events.TicketReservationFailed")
	require.NoError(t, err)

	eventBus, err := bus.NewEventBus(pubSub)
	require.NoError(t, err)

	availableTicketID := uuid.NewString()
	heldTicketID := uuid.NewString()

	inventory := &gateway.InventoryMock{
		Available: map[string]bool{
			availableTicketID: true,
			heldTicketID:      false,
		},
	}

	handler := event.NewHandler(eventBus, inventory, &bookingsRepoStub{}).ReserveTicketHandler()

	t.Run("available ticket is reserved and confirmed", func(t *testing.T) {
		bookingID := uuid.NewString()
		userID := uuid.NewString()

		err := handler.Handle(ctx, &entity.TicketReservationRequested{
			Header:    entity.NewEventHeader(),
			TicketID:  availableTicketID,
			EventID:   uuid.NewString(),
			UserID:    userID,
			BookingID: bookingID,
		})
		require.NoError(t, err)

		assert.Equal(t, userID, inventory.Reserved[availableTicketID])

		published := receiveEvent[entity.TicketReservationConfirmed](t, confirmed)
		assert.Equal(t, bookingID, published.BookingID)
	})

	t.Run("held ticket fails the reservation", func(t *testing.T) {
		bookingID := uuid.NewString()

		err := handler.Handle(ctx, &entity.TicketReservationRequested{
			Header:    entity.NewEventHeader(),
			TicketID:  heldTicketID,
			EventID:   uuid.NewString(),
			UserID:    uuid.NewString(),
			BookingID: bookingID,
		})
		require.NoError(t, err)

		published := receiveEvent[entity.TicketReservationFailed](t, failed)
		assert.Equal(t, bookingID, published.BookingID)
		assert.NotEmpty(t, published.Reason)
	})

	t.Run("unknown ticket fails the reservation", func(t *testing.T) {
		bookingID := uuid.NewString()

		err := handler.Handle(ctx, &entity.TicketReservationRequested{
			Header:    entity.NewEventHeader(),
			TicketID:  uuid.NewString(),
			EventID:   uuid.NewString(),
			UserID:    uuid.NewString(),
			BookingID: bookingID,
		})
		require.NoError(t, err)

		published := receiveEvent[entity.TicketReservationFailed](t, failed)
		assert.Equal(t, bookingID, published.BookingID)
	})
}

func TestBookingStatusHandlers(t *testing.T) {
	ctx := context.Background()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	eventBus, err := bus.NewEventBus(pubSub)
	require.NoError(t, err)

	repo := &bookingsRepoStub{}
	inventory := &gateway.InventoryMock{Available: map[string]bool{}}
	handler := event.NewHandler(eventBus, inventory, repo)

	reservedID := uuid.NewString()
	err = handler.AwaitPaymentHandler().Handle(ctx, &entity.TicketReservationConfirmed{
		Header:    entity.NewEventHeader(),
		BookingID: reservedID,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusWaitingForPayment, repo.statuses[reservedID])

	paidID := uuid.NewString()
	err = handler.ConfirmBookingHandler().Handle(ctx, &entity.PaymentConfirmed{
		Header:    entity.NewEventHeader(),
		PaymentID: uuid.NewString(),
		BookingID: paidID,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, repo.statuses[paidID])

	failedID := uuid.NewString()
	err = handler.CancelBookingHandler().Handle(ctx, &entity.TicketReservationFailed{
		Header:    entity.NewEventHeader(),
		BookingID: failedID,
		Reason:    "ticket is not available for reservation",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, repo.statuses[failedID])
}

func receiveEvent[T any](t *testing.T, messages <-chan *message.Message) T {
	t.Helper()

	var decoded T
	select {
	case msg := <-messages:
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	return decoded
}
