package bookings

import "errors"

var (
	// ErrNotFound indicates the booking does not exist or does not belong
	// to the requester.
	ErrNotFound = errors.New("booking not found")
	// ErrAlreadyCancelled indicates the booking was cancelled before.
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	// ErrTooCloseToStart indicates cancellation inside the cutoff window.
	ErrTooCloseToStart = errors.New("cannot cancel inside the cancellation cutoff window")
	// ErrInsufficientCapacity indicates the event cannot cover the
	// requested quantity. Not retryable as-is; callers may divert the
	// requester to the waitlist.
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	// ErrEventNotAvailable indicates the event is missing, not published,
	// or already started.
	ErrEventNotAvailable = errors.New("event is not available for booking")
	// ErrInvalidQuantity indicates a quantity outside the allowed range.
	ErrInvalidQuantity = errors.New("quantity out of range")
	// ErrDuplicateReference indicates the generated booking reference
	// collided with an existing one. Surfaced, never retried blindly.
	ErrDuplicateReference = errors.New("duplicate booking reference")
	// ErrTxConflict indicates a serialization failure. Transient, safe to
	// retry with backoff.
	ErrTxConflict = errors.New("transaction conflict")
)
