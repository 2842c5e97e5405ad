package waitlist

import "errors"

var (
	ErrAlreadyEnrolled   = errors.New("user is already on the waitlist for this event")
	ErrNotEnrolled       = errors.New("user is not on the waitlist for this event")
	ErrNotFound          = errors.New("waitlist entry not found")
	ErrEventNotFound     = errors.New("event not found")
	ErrEventNotAvailable = errors.New("event is not open for waitlisting")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidTransition = errors.New("invalid waitlist status transition")
)
