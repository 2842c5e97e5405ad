package events

import "errors"

var (
	// ErrNotFound indicates the event does not exist.
	ErrNotFound = errors.New("event not found")
	// ErrInvalidTransition indicates a disallowed status change.
	ErrInvalidTransition = errors.New("invalid event status transition")
	// ErrCapacityExceeded indicates a capacity mutation would break
	// 0 <= available <= total.
	ErrCapacityExceeded = errors.New("capacity change violates event capacity bounds")
)
