package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"bookings/db/bookings"
	"bookings/db/tickets"
	"bookings/entity"
	"bookings/gateway"
	"bookings/pubsub"
	"bookings/pubsub/bus"
	"bookings/service"
)

var (
	httpAddress = ":8080"
	baseURL     = "http://localhost:8080"
)

func TestComponent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/testcontainers/testcontainers-go.(*Reaper).Connect.func1"))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	dbconn, err := sqlx.Open("postgres", postgresURL)
	if err != nil {
		panic(err)
	}
	defer dbconn.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
	defer redisClient.Close()

	// the orchestrator talks to the inventory over HTTP even though both run
	// in this one process
	inventoryClient := gateway.NewInventoryClient(baseURL)

	done := make(chan struct{})
	go func() {
		<-done
		e := syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
		require.NoError(t, e)
	}()

	finished := make(chan struct{})
	go func() {
		svc := service.New(
			httpAddress,
			dbconn,
			redisClient,
			inventoryClient,
		)
		assert.NoError(t, svc.Run(ctx))
		close(finished)
	}()

	defer func() {
		close(done)
		<-finished
	}()

	waitForHttpServer(t)

	eventBus, err := bus.NewEventBus(pubsub.NewRedisPublisher(redisClient, watermill.NopLogger{}))
	require.NoError(t, err)

	ticketsRepo := tickets.NewPostgresRepository(dbconn)
	bookingsRepo := bookings.NewPostgresRepository(dbconn)

	t.Run("booking is confirmed after reservation and payment", func(t *testing.T) {
		eventID := uuid.NewString()
		ticket := createTickets(t, eventID, 1)[0]

		code, booking := postBooking(t, eventID, ticket.TicketID, uuid.NewString())
		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "PENDING", booking.Status)

		assertBookingStatus(t, booking.BookingID, "WAITING_FOR_PAYMENT")
		assertTicketAvailability(t, eventID, ticket.TicketID, false)

		postPayment(t, booking.BookingID)
		assertBookingStatus(t, booking.BookingID, "CONFIRMED")
	})

	t.Run("booking is rejected while the ticket is held", func(t *testing.T) {
		eventID := uuid.NewString()
		ticket := createTickets(t, eventID, 1)[0]

		reserveTicket(t, eventID, ticket.TicketID, uuid.NewString())

		code, _ := postBooking(t, eventID, ticket.TicketID, uuid.NewString())
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("ticket with a lapsed hold can be booked again", func(t *testing.T) {
		eventID := uuid.NewString()
		ticket := createTickets(t, eventID, 1)[0]

		lapsed := time.Now().Add(-time.Minute).UTC()
		err := ticketsRepo.SetHold(ctx, ticket.TicketID, entity.TicketStatusReserved, &lapsed)
		require.NoError(t, err)

		code, booking := postBooking(t, eventID, ticket.TicketID, uuid.NewString())
		require.Equal(t, http.StatusCreated, code)

		assertBookingStatus(t, booking.BookingID, "WAITING_FOR_PAYMENT")
	})

	t.Run("failed reservation cancels the booking and payment cannot revive it", func(t *testing.T) {
		bookingID := stagePendingBooking(t, dbconn)

		err := eventBus.Publish(ctx, entity.TicketReservationFailed{
			Header:    entity.NewEventHeader(),
			BookingID: bookingID,
			Reason:    "ticket is not available for reservation",
		})
		require.NoError(t, err)

		assertBookingStatus(t, bookingID, "CANCELLED")

		err = eventBus.Publish(ctx, entity.PaymentConfirmed{
			Header:    entity.NewEventHeader(),
			PaymentID: uuid.NewString(),
			BookingID: bookingID,
		})
		require.NoError(t, err)

		// CANCELLED is terminal, the late payment must change nothing
		time.Sleep(2 * time.Second)
		assert.Equal(t, "CANCELLED", getBookingStatus(t, bookingID))
	})

	t.Run("replayed reservation confirmation is a no-op", func(t *testing.T) {
		bookingID := stagePendingBooking(t, dbconn)

		for i := 0; i < 3; i++ {
			err := eventBus.Publish(ctx, entity.TicketReservationConfirmed{
				Header:    entity.NewEventHeader(),
				BookingID: bookingID,
			})
			require.NoError(t, err)
		}

		assertBookingStatus(t, bookingID, "WAITING_FOR_PAYMENT")

		time.Sleep(time.Second)
		assert.Equal(t, "WAITING_FOR_PAYMENT", getBookingStatus(t, bookingID))
	})

	t.Run("concurrent bookings sell the ticket exactly once", func(t *testing.T) {
		eventID := uuid.NewString()
		ticket := createTickets(t, eventID, 1)[0]

		const attempts = 5
		codes := make(chan int, attempts)
		winners := make(chan string, attempts)

		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				code, booking := postBooking(t, eventID, ticket.TicketID, uuid.NewString())
				codes <- code
				if code == http.StatusCreated {
					winners <- booking.BookingID
				}
			}()
		}
		wg.Wait()
		close(codes)
		close(winners)

		created := 0
		for code := range codes {
			if code == http.StatusCreated {
				created++
			} else {
				assert.Equal(t, http.StatusBadRequest, code)
			}
		}
		require.Equal(t, 1, created)

		winner := <-winners
		assertBookingStatus(t, winner, "WAITING_FOR_PAYMENT")

		postPayment(t, winner)
		assertBookingStatus(t, winner, "CONFIRMED")

		confirmed, err := bookingsRepo.CountConfirmedForTicket(ctx, ticket.TicketID)
		require.NoError(t, err)
		assert.Equal(t, 1, confirmed)
	})
}

func createTickets(t *testing.T, eventID string, quantity int) []entity.Ticket {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"quantity":    quantity,
		"ticket_type": "standard",
		"price":       49.99,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/events/%s/tickets", baseURL, eventID), bytes.NewBuffer(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Role", "ADMIN")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	listResp, err := http.Get(fmt.Sprintf("%s/events/%s/tickets", baseURL, eventID))
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var tickets []entity.Ticket
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&tickets))
	require.Len(t, tickets, quantity)

	return tickets
}

type bookingView struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

func postBooking(t *testing.T, eventID, ticketID, userID string) (int, bookingView) {
	t.Helper()

	payload, err := json.Marshal(map[string]string{
		"event_id":  eventID,
		"ticket_id": ticketID,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, baseURL+"/bookings", bytes.NewBuffer(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", userID)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var booking bookingView
	if resp.StatusCode == http.StatusCreated {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&booking))
	}

	return resp.StatusCode, booking
}

func reserveTicket(t *testing.T, eventID, ticketID, userID string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPatch, fmt.Sprintf("%s/events/%s/tickets/%s", baseURL, eventID, ticketID), nil)
	require.NoError(t, err)
	req.Header.Set("X-User-Id", userID)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func postPayment(t *testing.T, bookingID string) {
	t.Helper()

	payload, err := json.Marshal(map[string]string{"booking_id": bookingID})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/payments", "application/json", bytes.NewBuffer(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func getBookingStatus(t *testing.T, bookingID string) string {
	t.Helper()

	resp, err := http.Get(baseURL + "/bookings/" + bookingID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var booking bookingView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&booking))

	return booking.Status
}

func assertBookingStatus(t *testing.T, bookingID, status string) {
	t.Helper()

	assert.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(baseURL + "/bookings/" + bookingID)
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			var booking bookingView
			if !assert.NoError(t, json.NewDecoder(resp.Body).Decode(&booking)) {
				return
			}

			assert.Equal(t, status, booking.Status)
		},
		10*time.Second,
		100*time.Millisecond,
	)
}

func assertTicketAvailability(t *testing.T, eventID, ticketID string, available bool) {
	assert.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(fmt.Sprintf("%s/events/%s/tickets/%s/available", baseURL, eventID, ticketID))
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			var got bool
			if !assert.NoError(t, json.NewDecoder(resp.Body).Decode(&got)) {
				return
			}

			assert.Equal(t, available, got)
		},
		10*time.Second,
		100*time.Millisecond,
	)
}

// stagePendingBooking inserts a PENDING booking without publishing the
// reservation request, so the test alone decides which saga events arrive.
func stagePendingBooking(t *testing.T, dbconn *sqlx.DB) string {
	t.Helper()

	booking := entity.Booking{
		BookingID: uuid.NewString(),
		UserID:    uuid.NewString(),
		EventID:   uuid.NewString(),
		TicketID:  uuid.NewString(),
		Status:    entity.BookingStatusPending,
		BookedAt:  time.Now().UTC(),
	}

	_, err := dbconn.NamedExec(`
		INSERT INTO bookings (booking_id, user_id, event_id, ticket_id, status, booked_at, detail)
		VALUES (:booking_id, :user_id, :event_id, :ticket_id, :status, :booked_at, :detail)
	`, booking)
	require.NoError(t, err)

	return booking.BookingID
}

func waitForHttpServer(t *testing.T) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(baseURL + "/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			if assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode) {
				return
			}
		},
		time.Second*10,
		time.Millisecond*50,
	)
}
