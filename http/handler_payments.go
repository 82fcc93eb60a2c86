package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"bookings/entity"
)

type postPaymentRequest struct {
	BookingID string `json:"booking_id"`
}

// PostPayment records a successful payment and announces it on the bus
// (through the payment repository's outbox). The booking advances to
// CONFIRMED when the orchestrator consumes the event, not here.
func (s Server) PostPayment(c echo.Context) error {
	var request postPaymentRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	if request.BookingID == "" {
		return entity.ValidationError{Reason: "booking id must not be empty"}
	}

	payment := entity.Payment{
		PaymentID: uuid.NewString(),
		BookingID: request.BookingID,
		PaidAt:    time.Now().UTC(),
	}

	if err := s.paymentsRepo.Store(c.Request().Context(), payment); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, payment)
}

func (s Server) GetPayment(c echo.Context) error {
	payment, err := s.paymentsRepo.FindByID(c.Request().Context(), c.Param("payment_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, payment)
}

func (s Server) GetPayments(c echo.Context) error {
	bookingID := c.QueryParam("booking_id")

	if bookingID != "" {
		payments, err := s.paymentsRepo.FindByBooking(c.Request().Context(), bookingID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, payments)
	}

	payments, err := s.paymentsRepo.FindAll(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, payments)
}
