// Package reservation implements the claim cache consulted before a booking
// is committed. It narrows the window in which two requests for the same
// ticket both pass the availability check; the inventory's locked
// check-then-set stays the single authority on allocation.
package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Guard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewGuard builds a guard whose claims expire after ttl. Using the same TTL
// as the ticket hold means a claim never outlives the hold it shadows.
func NewGuard(rdb *redis.Client, ttl time.Duration) *Guard {
	return &Guard{rdb: rdb, ttl: ttl}
}

// Claim marks the ticket as having a reservation in flight. It returns false
// when another request already holds the claim. The claim is shared by all
// orchestrator instances but is still best effort: its absence proves
// nothing.
func (g *Guard) Claim(ctx context.Context, ticketID string) (bool, error) {
	claimed, err := g.rdb.SetNX(ctx, key(ticketID), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("could not claim ticket: %w", err)
	}
	return claimed, nil
}

// Release drops the claim, so a failed booking attempt does not block the
// ticket until the TTL lapses.
func (g *Guard) Release(ctx context.Context, ticketID string) error {
	return g.rdb.Del(ctx, key(ticketID)).Err()
}

func key(ticketID string) string {
	return "reservation-guard:" + ticketID
}
