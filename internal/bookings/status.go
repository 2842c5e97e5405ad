package bookings

// Status represents the lifecycle status of a booking. Admission always
// produces CONFIRMED directly; there is no persisted pending state.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// AdmissionOutcome classifies the result of an admission attempt.
type AdmissionOutcome string

const (
	// OutcomeConfirmed means a booking was created and capacity consumed.
	OutcomeConfirmed AdmissionOutcome = "CONFIRMED"
	// OutcomeRejected means the request was refused for a non-transient
	// reason; see RejectReason.
	OutcomeRejected AdmissionOutcome = "REJECTED"
	// OutcomeBusy means a transient contention failure; safe to retry.
	OutcomeBusy AdmissionOutcome = "BUSY"
	// OutcomeWaitlisted means the requester was diverted to the waitlist.
	// Produced by callers that enroll after a capacity rejection.
	OutcomeWaitlisted AdmissionOutcome = "WAITLISTED"
)

// RejectReason states why an admission was rejected.
type RejectReason string

const (
	ReasonNotAvailable         RejectReason = "EVENT_NOT_AVAILABLE"
	ReasonInsufficientCapacity RejectReason = "INSUFFICIENT_CAPACITY"
	ReasonInvalidQuantity      RejectReason = "INVALID_QUANTITY"
)
