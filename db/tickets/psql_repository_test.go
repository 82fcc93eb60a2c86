package tickets_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookings/db"
	"bookings/db/tickets"
	"bookings/entity"
)

func TestMain(m *testing.M) {
	if os.Getenv("POSTGRES_URL") == "" {
		container, connStr := db.StartPostgresContainer()
		os.Setenv("POSTGRES_URL", connStr)

		code := m.Run()

		_ = container.Terminate(context.Background())
		os.Exit(code)
	}

	os.Exit(m.Run())
}

func TestAddBatch(t *testing.T) {
	ctx := context.Background()
	repo := tickets.NewPostgresRepository(db.GetDb(t))

	_, err := repo.AddBatch(ctx, uuid.NewString(), 3, "standard", 49.99, "USER")
	var invalidActionErr entity.InvalidActionError
	assert.ErrorAs(t, err, &invalidActionErr)

	_, err = repo.AddBatch(ctx, uuid.NewString(), 0, "standard", 49.99, "ADMIN")
	var validationErr entity.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = repo.AddBatch(ctx, uuid.NewString(), 3, "standard", -1, "ORGANIZER")
	assert.ErrorAs(t, err, &validationErr)

	eventID := uuid.NewString()
	created, err := repo.AddBatch(ctx, eventID, 3, "standard", 49.99, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	all, err := repo.FindByEvent(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, ticket := range all {
		assert.Equal(t, entity.TicketStatusAvailable, ticket.Status)
		assert.Nil(t, ticket.ExpiresAt)
	}
}

func TestGetNotFound(t *testing.T) {
	repo := tickets.NewPostgresRepository(db.GetDb(t))

	_, err := repo.Get(context.Background(), uuid.NewString(), uuid.NewString())
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestReserveHoldLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := tickets.NewPostgresRepository(db.GetDb(t))

	eventID := uuid.NewString()
	userID := uuid.NewString()
	ticketID := addTicket(t, repo, eventID)

	available, err := repo.IsAvailable(ctx, eventID, ticketID)
	require.NoError(t, err)
	assert.True(t, available)

	confirmation, err := repo.Reserve(ctx, eventID, ticketID, userID)
	require.NoError(t, err)
	assert.Equal(t, ticketID, confirmation.TicketID)
	assert.Equal(t, userID, confirmation.UserID)
	assert.WithinDuration(t, time.Now().Add(tickets.HoldDuration), confirmation.ExpiresAt, time.Minute)

	available, err = repo.IsAvailable(ctx, eventID, ticketID)
	require.NoError(t, err)
	assert.False(t, available)

	_, err = repo.Reserve(ctx, eventID, ticketID, uuid.NewString())
	var invalidActionErr entity.InvalidActionError
	assert.ErrorAs(t, err, &invalidActionErr)

	// once the hold lapses the ticket counts as available again, even though
	// the stored status is still RESERVED
	lapsed := time.Now().Add(-time.Minute).UTC()
	err = repo.SetHold(ctx, ticketID, entity.TicketStatusReserved, &lapsed)
	require.NoError(t, err)

	ticket, err := repo.Get(ctx, eventID, ticketID)
	require.NoError(t, err)
	assert.Equal(t, entity.TicketStatusReserved, ticket.Status)

	available, err = repo.IsAvailable(ctx, eventID, ticketID)
	require.NoError(t, err)
	assert.True(t, available)

	_, err = repo.Reserve(ctx, eventID, ticketID, uuid.NewString())
	assert.NoError(t, err)
}

func TestReserveConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := tickets.NewPostgresRepository(db.GetDb(t))

	eventID := uuid.NewString()
	ticketID := addTicket(t, repo, eventID)

	const attempts = 8
	errs := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Reserve(ctx, eventID, ticketID, uuid.NewString())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var invalidActionErr entity.InvalidActionError
		assert.ErrorAs(t, err, &invalidActionErr)
	}

	assert.Equal(t, 1, succeeded)
}

func addTicket(t *testing.T, repo *tickets.PostgresRepository, eventID string) string {
	t.Helper()

	_, err := repo.AddBatch(context.Background(), eventID, 1, "standard", 49.99, "ADMIN")
	require.NoError(t, err)

	all, err := repo.FindByEvent(context.Background(), eventID)
	require.NoError(t, err)
	require.Len(t, all, 1)

	return all[0].TicketID
}
