package http

import (
	"context"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"bookings/entity"
)

// InventoryService is the synchronous interface the orchestrator consumes.
// In production it is the HTTP gateway client; the inventory stays an
// external collaborator from the booking side's point of view.
type InventoryService interface {
	IsAvailable(ctx context.Context, eventID, ticketID string) (bool, error)
}

// ReservationGuard is the best-effort claim cache consulted before a booking
// is committed.
type ReservationGuard interface {
	Claim(ctx context.Context, ticketID string) (bool, error)
	Release(ctx context.Context, ticketID string) error
}

type TicketsRepository interface {
	AddBatch(ctx context.Context, eventID string, quantity int, ticketType string, price float64, role string) (int, error)
	Get(ctx context.Context, eventID, ticketID string) (entity.Ticket, error)
	FindByEvent(ctx context.Context, eventID string) ([]entity.Ticket, error)
	IsAvailable(ctx context.Context, eventID, ticketID string) (bool, error)
	Reserve(ctx context.Context, eventID, ticketID, userID string) (entity.HoldConfirmation, error)
}

type BookingsRepository interface {
	Store(ctx context.Context, booking entity.Booking) error
	FindByID(ctx context.Context, bookingID string) (entity.Booking, error)
	FindAll(ctx context.Context) ([]entity.Booking, error)
	FindByUser(ctx context.Context, userID string) ([]entity.Booking, error)
	Update(ctx context.Context, bookingID string, status *entity.BookingStatus, detail *string) (entity.Booking, error)
	Delete(ctx context.Context, bookingID string) (entity.Booking, error)
}

type PaymentsRepository interface {
	Store(ctx context.Context, payment entity.Payment) error
	FindByID(ctx context.Context, paymentID string) (entity.Payment, error)
	FindAll(ctx context.Context) ([]entity.Payment, error)
	FindByBooking(ctx context.Context, bookingID string) ([]entity.Payment, error)
}

type Server struct {
	addr             string
	e                *echo.Echo
	inventoryService InventoryService
	guard            ReservationGuard
	ticketsRepo      TicketsRepository
	bookingsRepo     BookingsRepository
	paymentsRepo     PaymentsRepository
}

func NewServer(
	addr string,
	inventoryService InventoryService,
	guard ReservationGuard,
	ticketsRepo TicketsRepository,
	bookingsRepo BookingsRepository,
	paymentsRepo PaymentsRepository,
) *Server {
	e := echoHTTP.NewEcho()
	e.Use(otelecho.Middleware("bookings"))
	e.HTTPErrorHandler = errorKindHandler(e)

	server := &Server{
		addr:             addr,
		e:                e,
		inventoryService: inventoryService,
		guard:            guard,
		ticketsRepo:      ticketsRepo,
		bookingsRepo:     bookingsRepo,
		paymentsRepo:     paymentsRepo,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/bookings", server.PostBooking)
	e.GET("/bookings", server.GetBookings)
	e.GET("/bookings/:booking_id", server.GetBooking)
	e.PUT("/bookings/:booking_id", server.PutBooking)
	e.DELETE("/bookings/:booking_id", server.DeleteBooking)
	e.GET("/users/:user_id/bookings", server.GetUserBookings)

	e.POST("/events/:event_id/tickets", server.PostTickets)
	e.GET("/events/:event_id/tickets", server.GetEventTickets)
	e.GET("/events/:event_id/tickets/:ticket_id", server.GetTicket)
	e.GET("/events/:event_id/tickets/:ticket_id/available", server.GetTicketAvailability)
	e.PATCH("/events/:event_id/tickets/:ticket_id", server.ReserveTicket)

	e.POST("/payments", server.PostPayment)
	e.GET("/payments", server.GetPayments)
	e.GET("/payments/:payment_id", server.GetPayment)

	return server
}

// errorKindHandler maps the domain error kinds onto status codes before
// delegating to echo's default handler: Validation is a rejected request,
// NotFound an absent result, InvalidAction a rejected action distinct from
// malformed input.
func errorKindHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var validationErr entity.ValidationError
		var invalidActionErr entity.InvalidActionError

		switch {
		case errors.Is(err, entity.ErrNotFound):
			err = echo.NewHTTPError(http.StatusNotFound, "not found")
		case errors.As(err, &validationErr):
			err = echo.NewHTTPError(http.StatusBadRequest, validationErr.Reason)
		case errors.As(err, &invalidActionErr):
			err = echo.NewHTTPError(http.StatusForbidden, invalidActionErr.Reason)
		}

		e.DefaultHTTPErrorHandler(err, c)
	}
}

func (s Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(ctx)
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
