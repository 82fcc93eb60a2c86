package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bookings/entity"
)

type postTicketsRequest struct {
	Quantity   int     `json:"quantity"`
	TicketType string  `json:"ticket_type"`
	Price      float64 `json:"price"`
}

type postTicketsResponse struct {
	Created int `json:"created"`
}

// PostTickets creates a batch of AVAILABLE tickets for an event. The
// caller's role comes from the gateway-supplied request metadata.
func (s Server) PostTickets(c echo.Context) error {
	var request postTicketsRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	role := c.Request().Header.Get("X-User-Role")

	created, err := s.ticketsRepo.AddBatch(
		c.Request().Context(),
		c.Param("event_id"),
		request.Quantity,
		request.TicketType,
		request.Price,
		role,
	)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, postTicketsResponse{Created: created})
}

func (s Server) GetEventTickets(c echo.Context) error {
	tickets, err := s.ticketsRepo.FindByEvent(c.Request().Context(), c.Param("event_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tickets)
}

func (s Server) GetTicket(c echo.Context) error {
	ticket, err := s.ticketsRepo.Get(c.Request().Context(), c.Param("event_id"), c.Param("ticket_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ticket)
}

func (s Server) GetTicketAvailability(c echo.Context) error {
	available, err := s.ticketsRepo.IsAvailable(c.Request().Context(), c.Param("event_id"), c.Param("ticket_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, available)
}

// ReserveTicket is the synchronous reservation endpoint. The saga normally
// drives reservations through the bus, but the inventory also exposes the
// hold directly.
func (s Server) ReserveTicket(c echo.Context) error {
	userID := c.Request().Header.Get("X-User-Id")
	if userID == "" {
		return entity.ValidationError{Reason: "user id must not be empty"}
	}

	confirmation, err := s.ticketsRepo.Reserve(
		c.Request().Context(),
		c.Param("event_id"),
		c.Param("ticket_id"),
		userID,
	)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, confirmation)
}
