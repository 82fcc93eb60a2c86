package entity

import "errors"

// ErrNotFound covers unknown ticket, event, booking and payment ids.
var ErrNotFound = errors.New("not found")

// ValidationError rejects malformed or conflicting input, including a ticket
// that is not available at booking time.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return e.Reason
}

// InvalidActionError rejects an operation the caller may not perform:
// an authorization failure, or reserving a ticket that is no longer
// available at the moment of commit.
type InvalidActionError struct {
	Reason string
}

func (e InvalidActionError) Error() string {
	return e.Reason
}
