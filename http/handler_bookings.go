package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"bookings/entity"
	"bookings/metrics"
)

type postBookingRequest struct {
	EventID  string `json:"event_id"`
	TicketID string `json:"ticket_id"`
	Detail   string `json:"detail"`
}

type putBookingRequest struct {
	Status *string `json:"status"`
	Detail *string `json:"detail"`
}

type bookingResponse struct {
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	EventID   string `json:"event_id"`
	TicketID  string `json:"ticket_id"`
	Status    string `json:"status"`
	BookedAt  string `json:"booked_at"`
	Detail    string `json:"detail"`
}

func toBookingResponse(booking entity.Booking) bookingResponse {
	return bookingResponse{
		BookingID: booking.BookingID,
		UserID:    booking.UserID,
		EventID:   booking.EventID,
		TicketID:  booking.TicketID,
		Status:    string(booking.Status),
		BookedAt:  booking.BookedAt.Format(time.RFC3339),
		Detail:    booking.Detail,
	}
}

// PostBooking starts the reservation saga: availability pre-check against
// the inventory, guard claim, then the booking is persisted as PENDING with
// the reservation request published in the same transaction. Any failure
// before the store leaves no state behind; a failed store releases the
// claim.
func (s Server) PostBooking(c echo.Context) error {
	var request postBookingRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	userID := c.Request().Header.Get("X-User-Id")
	if request.EventID == "" || request.TicketID == "" {
		return entity.ValidationError{Reason: "event id and ticket id must not be empty"}
	}
	if userID == "" {
		return entity.ValidationError{Reason: "user id must not be empty"}
	}

	ctx := c.Request().Context()

	available, err := s.inventoryService.IsAvailable(ctx, request.EventID, request.TicketID)
	if err != nil {
		return err
	}
	if !available {
		return entity.ValidationError{Reason: "ticket is not available"}
	}

	claimed, err := s.guard.Claim(ctx, request.TicketID)
	if err != nil {
		return err
	}
	if !claimed {
		return entity.ValidationError{Reason: "ticket is already reserved, please try again later"}
	}

	booking := entity.Booking{
		BookingID: uuid.NewString(),
		UserID:    userID,
		EventID:   request.EventID,
		TicketID:  request.TicketID,
		Status:    entity.BookingStatusPending,
		BookedAt:  time.Now().UTC(),
		Detail:    request.Detail,
	}

	if err := s.bookingsRepo.Store(ctx, booking); err != nil {
		if releaseErr := s.guard.Release(ctx, request.TicketID); releaseErr != nil {
			c.Logger().Errorf("could not release reservation claim: %v", releaseErr)
		}
		return err
	}

	metrics.BookingsCreated.Inc()

	return c.JSON(http.StatusCreated, toBookingResponse(booking))
}

func (s Server) GetBooking(c echo.Context) error {
	booking, err := s.bookingsRepo.FindByID(c.Request().Context(), c.Param("booking_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toBookingResponse(booking))
}

func (s Server) GetBookings(c echo.Context) error {
	bookings, err := s.bookingsRepo.FindAll(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, lo.Map(bookings, func(b entity.Booking, _ int) bookingResponse {
		return toBookingResponse(b)
	}))
}

// GetUserBookings lists a user's bookings. Only the user themselves or an
// admin may look.
func (s Server) GetUserBookings(c echo.Context) error {
	userID := c.Param("user_id")
	requesterID := c.Request().Header.Get("X-User-Id")
	requesterRole := c.Request().Header.Get("X-User-Role")

	if requesterID != userID && requesterRole != "ADMIN" {
		return entity.InvalidActionError{Reason: "unauthorized access to bookings of another user"}
	}

	bookings, err := s.bookingsRepo.FindByUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, lo.Map(bookings, func(b entity.Booking, _ int) bookingResponse {
		return toBookingResponse(b)
	}))
}

func (s Server) PutBooking(c echo.Context) error {
	var request putBookingRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	var status *entity.BookingStatus
	if request.Status != nil {
		parsed, err := entity.ParseBookingStatus(*request.Status)
		if err != nil {
			return err
		}
		status = &parsed
	}

	booking, err := s.bookingsRepo.Update(c.Request().Context(), c.Param("booking_id"), status, request.Detail)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toBookingResponse(booking))
}

func (s Server) DeleteBooking(c echo.Context) error {
	booking, err := s.bookingsRepo.Delete(c.Request().Context(), c.Param("booking_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toBookingResponse(booking))
}
