package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bookings/entity"
)

// InventoryClient calls the ticket inventory's synchronous interface. The
// orchestrator treats the inventory as an external collaborator even when
// both run in one process, so the call goes over HTTP and a timeout counts
// as the ticket being unavailable to book.
type InventoryClient struct {
	baseURL string
	client  *http.Client
}

func NewInventoryClient(baseURL string) InventoryClient {
	return InventoryClient{
		baseURL: baseURL,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
	}
}

func (c InventoryClient) IsAvailable(ctx context.Context, eventID, ticketID string) (bool, error) {
	url := fmt.Sprintf("%s/events/%s/tickets/%s/available", c.baseURL, eventID, ticketID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("availability call failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, entity.ErrNotFound
	default:
		return false, fmt.Errorf("unexpected status code while checking availability: %d", resp.StatusCode)
	}

	var available bool
	if err := json.NewDecoder(resp.Body).Decode(&available); err != nil {
		return false, fmt.Errorf("could not decode availability response: %w", err)
	}

	return available, nil
}

func (c InventoryClient) Reserve(ctx context.Context, eventID, ticketID, userID string) (entity.HoldConfirmation, error) {
	url := fmt.Sprintf("%s/events/%s/tickets/%s", c.baseURL, eventID, ticketID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, nil)
	if err != nil {
		return entity.HoldConfirmation{}, err
	}
	req.Header.Set("X-User-Id", userID)

	resp, err := c.client.Do(req)
	if err != nil {
		return entity.HoldConfirmation{}, fmt.Errorf("reserve call failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return entity.HoldConfirmation{}, entity.ErrNotFound
	case http.StatusForbidden:
		return entity.HoldConfirmation{}, entity.InvalidActionError{Reason: "ticket is not available for reservation"}
	default:
		return entity.HoldConfirmation{}, fmt.Errorf("unexpected status code while reserving: %d", resp.StatusCode)
	}

	var confirmation entity.HoldConfirmation
	if err := json.NewDecoder(resp.Body).Decode(&confirmation); err != nil {
		return entity.HoldConfirmation{}, fmt.Errorf("could not decode reserve response: %w", err)
	}

	return confirmation, nil
}
