package gateway

import (
	"context"
	"sync"
	"time"

	"bookings/entity"
)

// InventoryMock is an in-memory stand-in for the inventory's synchronous
// interface.
type InventoryMock struct {
	lock      sync.Mutex
	Available map[string]bool
	Reserved  map[string]string
}

func (m *InventoryMock) IsAvailable(ctx context.Context, eventID, ticketID string) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	available, ok := m.Available[ticketID]
	if !ok {
		return false, entity.ErrNotFound
	}
	return available, nil
}

func (m *InventoryMock) Reserve(ctx context.Context, eventID, ticketID, userID string) (entity.HoldConfirmation, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	available, ok := m.Available[ticketID]
	if !ok {
		return entity.HoldConfirmation{}, entity.ErrNotFound
	}
	if !available {
		return entity.HoldConfirmation{}, entity.InvalidActionError{Reason: "ticket is not available for reservation"}
	}

	if m.Reserved == nil {
		m.Reserved = map[string]string{}
	}
	m.Available[ticketID] = false
	m.Reserved[ticketID] = userID

	return entity.HoldConfirmation{
		TicketID:  ticketID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}, nil
}
