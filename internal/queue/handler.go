package queue

import (
	"context"
	"errors"
	"fmt"

	"ticketly/internal/bookings"
	"ticketly/internal/waitlist"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
)

// Admitter is the slice of the booking service the workers need.
type Admitter interface {
	Admit(ctx context.Context, userID, eventID uuid.UUID, quantity int) (*bookings.AdmissionResult, error)
}

// WaitlistService is the slice of the waitlist service the workers need.
type WaitlistService interface {
	Enroll(ctx context.Context, userID, eventID uuid.UUID, quantity int) (*waitlist.Entry, error)
	Promote(ctx context.Context, eventID uuid.UUID, freedQuantity int) (*waitlist.PromotionResult, error)
}

// JobHandler executes dequeued jobs. Kept free of Kafka types so the
// processing logic is testable on its own.
type JobHandler struct {
	admitter Admitter
	waitlist WaitlistService
	log      *logger.Logger
}

func NewJobHandler(admitter Admitter, waitlistService WaitlistService, log *logger.Logger) *JobHandler {
	if log == nil {
		log = logger.GetDefault()
	}
	return &JobHandler{
		admitter: admitter,
		waitlist: waitlistService,
		log:      log,
	}
}

// HandleAdmission runs a deferred booking request through the admission
// engine. Capacity exhaustion diverts the user to the waitlist; a busy lock
// is returned as an error so the message is redelivered.
func (h *JobHandler) HandleAdmission(ctx context.Context, job *AdmissionJob) error {
	result, err := h.admitter.Admit(ctx, job.UserID, job.EventID, job.Quantity)
	if err != nil {
		return fmt.Errorf("admission job %s failed: %w", job.JobID, err)
	}

	switch result.Outcome {
	case bookings.OutcomeConfirmed:
		h.log.Info("queued admission confirmed",
			"job_id", job.JobID.String(),
			"booking_id", result.Booking.ID.String(),
			"event_id", job.EventID.String(),
		)
		return nil

	case bookings.OutcomeBusy:
		return fmt.Errorf("admission job %s: event busy, retrying", job.JobID)

	case bookings.OutcomeRejected:
		if result.Reason != bookings.ReasonInsufficientCapacity || h.waitlist == nil {
			h.log.Info("queued admission rejected",
				"job_id", job.JobID.String(),
				"event_id", job.EventID.String(),
				"reason", string(result.Reason),
			)
			return nil
		}

		_, err := h.waitlist.Enroll(ctx, job.UserID, job.EventID, job.Quantity)
		if err != nil {
			if errors.Is(err, waitlist.ErrAlreadyEnrolled) {
				return nil
			}
			return fmt.Errorf("admission job %s: waitlist fallback failed: %w", job.JobID, err)
		}
		h.log.Info("queued admission diverted to waitlist",
			"job_id", job.JobID.String(),
			"event_id", job.EventID.String(),
			"user_id", job.UserID.String(),
		)
		return nil

	default:
		return fmt.Errorf("admission job %s: unknown outcome %q", job.JobID, result.Outcome)
	}
}

// HandlePromotion runs a waitlist promotion scan for the freed quantity
func (h *JobHandler) HandlePromotion(ctx context.Context, job *PromotionJob) error {
	if h.waitlist == nil {
		return nil
	}
	result, err := h.waitlist.Promote(ctx, job.EventID, job.FreedQuantity)
	if err != nil {
		return fmt.Errorf("promotion job %s failed: %w", job.JobID, err)
	}
	h.log.Info("promotion job processed",
		"job_id", job.JobID.String(),
		"event_id", job.EventID.String(),
		"notified", result.NotifiedCount,
	)
	return nil
}
