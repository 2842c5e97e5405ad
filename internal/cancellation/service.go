package cancellation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketly/internal/bookings"
	"ticketly/internal/locks"
	"ticketly/internal/waitlist"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
)

// BookingCanceller is the slice of the booking service this package needs.
type BookingCanceller interface {
	CancelBooking(ctx context.Context, bookingID, userID uuid.UUID, reason string) (*bookings.Booking, error)
}

// PromotionDispatcher hands the freed capacity to the waitlist, either
// inline or through the work queue. Delivery is at-least-once: promotion
// scans current queue state, so replays are harmless.
type PromotionDispatcher interface {
	DispatchPromotion(ctx context.Context, eventID uuid.UUID, freedQuantity int) error
}

// Locker is the advisory distributed lock guarding double cancellation.
type Locker interface {
	AcquireWithRetry(ctx context.Context, key, ownerToken string, ttl time.Duration, attempts int, backoff time.Duration) error
	Release(ctx context.Context, key, ownerToken string) (bool, error)
}

var ErrCancellationInProgress = errors.New("cancellation already in progress for this booking")

// Config carries the cancellation lock tunables
type Config struct {
	LockTTL           time.Duration
	LockRetryAttempts int
	LockRetryBackoff  time.Duration
}

func DefaultConfig() Config {
	return Config{
		LockTTL:           30 * time.Second,
		LockRetryAttempts: 3,
		LockRetryBackoff:  50 * time.Millisecond,
	}
}

type Service interface {
	// Cancel reverses a booking under the cancellation lock and dispatches a
	// waitlist promotion for the freed capacity.
	Cancel(ctx context.Context, bookingID, userID uuid.UUID, reason string) (*bookings.Booking, error)
}

type service struct {
	canceller  BookingCanceller
	dispatcher PromotionDispatcher
	locker     Locker
	log        *logger.Logger
	cfg        Config
}

func NewService(canceller BookingCanceller, dispatcher PromotionDispatcher, locker Locker, log *logger.Logger, cfg Config) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	if cfg.LockTTL <= 0 {
		cfg = DefaultConfig()
	}
	return &service{
		canceller:  canceller,
		dispatcher: dispatcher,
		locker:     locker,
		log:        log,
		cfg:        cfg,
	}
}

// Cancel serializes concurrent cancel attempts for one booking through the
// per-booking lock. The lock is advisory: the transaction underneath rejects
// a second cancellation on its own.
func (s *service) Cancel(ctx context.Context, bookingID, userID uuid.UUID, reason string) (*bookings.Booking, error) {
	lockKey := locks.CancelLockKey(bookingID.String())
	ownerToken := uuid.NewString()

	err := s.locker.AcquireWithRetry(ctx, lockKey, ownerToken, s.cfg.LockTTL, s.cfg.LockRetryAttempts, s.cfg.LockRetryBackoff)
	if err != nil {
		if errors.Is(err, locks.ErrNotAcquired) {
			return nil, ErrCancellationInProgress
		}
		return nil, fmt.Errorf("failed to acquire cancellation lock: %w", err)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if _, err := s.locker.Release(releaseCtx, lockKey, ownerToken); err != nil {
			s.log.ErrorWithContext(releaseCtx, "failed to release cancellation lock", err, map[string]interface{}{
				"booking_id": bookingID.String(),
			})
		}
	}()

	booking, err := s.canceller.CancelBooking(ctx, bookingID, userID, reason)
	if err != nil {
		return nil, err
	}

	// Promotion is dispatched after the cancellation committed. A dispatch
	// failure does not undo the cancellation: capacity is already restored
	// and the next cancellation or manual trigger will pick the queue up.
	if s.dispatcher != nil {
		if err := s.dispatcher.DispatchPromotion(ctx, booking.EventID, booking.Quantity); err != nil {
			s.log.ErrorWithContext(ctx, "failed to dispatch waitlist promotion", err, map[string]interface{}{
				"event_id":       booking.EventID.String(),
				"freed_quantity": booking.Quantity,
			})
		}
	}

	return booking, nil
}

// InlinePromoter runs promotion synchronously in the cancelling process.
// Used when the work queue is disabled.
type InlinePromoter struct {
	waitlist waitlist.Service
}

func NewInlinePromoter(waitlistService waitlist.Service) *InlinePromoter {
	return &InlinePromoter{waitlist: waitlistService}
}

func (p *InlinePromoter) DispatchPromotion(ctx context.Context, eventID uuid.UUID, freedQuantity int) error {
	_, err := p.waitlist.Promote(ctx, eventID, freedQuantity)
	return err
}
