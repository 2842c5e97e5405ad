package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketly/internal/locks"
	"ticketly/internal/shared/metrics"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
)

// Locker is the advisory distributed lock consumed by the admission engine.
// Satisfied by locks.Mutex.
type Locker interface {
	AcquireWithRetry(ctx context.Context, key, ownerToken string, ttl time.Duration, attempts int, backoff time.Duration) error
	Release(ctx context.Context, key, ownerToken string) (bool, error)
}

// Config carries the admission engine tunables.
type Config struct {
	MaxQuantity       int
	CancelCutoff      time.Duration
	LockTTL           time.Duration
	LockRetryAttempts int
	LockRetryBackoff  time.Duration
}

// DefaultConfig returns the engine defaults. Lock TTL must exceed the
// expected admission-transaction duration with margin.
func DefaultConfig() Config {
	return Config{
		MaxQuantity:       10,
		CancelCutoff:      24 * time.Hour,
		LockTTL:           30 * time.Second,
		LockRetryAttempts: 3,
		LockRetryBackoff:  50 * time.Millisecond,
	}
}

// Service interface defines the contract for booking business logic
type Service interface {
	// Admit converts a request into a confirmed booking while decrementing
	// capacity, or reports why it could not.
	Admit(ctx context.Context, userID, eventID uuid.UUID, quantity int) (*AdmissionResult, error)

	// CancelBooking reverses an admitted booking and restores its capacity.
	CancelBooking(ctx context.Context, bookingID, userID uuid.UUID, reason string) (*Booking, error)

	GetBooking(ctx context.Context, bookingID, userID uuid.UUID) (*Booking, error)
	GetBookingByReference(ctx context.Context, ref string, userID uuid.UUID) (*Booking, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error)
}

type service struct {
	repo    Repository
	locker  Locker
	metrics metrics.Collector
	log     *logger.Logger
	cfg     Config
}

// NewService creates a new booking service instance
func NewService(repo Repository, locker Locker, collector metrics.Collector, log *logger.Logger, cfg Config) Service {
	if collector == nil {
		collector = metrics.Noop{}
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		repo:    repo,
		locker:  locker,
		metrics: collector,
		log:     log,
		cfg:     cfg,
	}
}

// Admit runs the admission protocol: bounded lock acquisition, then a single
// serializable transaction doing the capacity check, booking insert and
// conditional decrement. The lock is advisory; the conditional write inside
// the transaction is the correctness guarantee.
func (s *service) Admit(ctx context.Context, userID, eventID uuid.UUID, quantity int) (*AdmissionResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveAdmissionDuration(time.Since(start).Seconds())
	}()

	if quantity < 1 || quantity > s.cfg.MaxQuantity {
		s.metrics.IncAdmission(metrics.OutcomeRejected)
		return &AdmissionResult{Outcome: OutcomeRejected, Reason: ReasonInvalidQuantity}, nil
	}

	lockKey := locks.BookingLockKey(eventID.String())
	ownerToken := uuid.NewString()

	err := s.locker.AcquireWithRetry(ctx, lockKey, ownerToken, s.cfg.LockTTL, s.cfg.LockRetryAttempts, s.cfg.LockRetryBackoff)
	if err != nil {
		if errors.Is(err, locks.ErrNotAcquired) {
			s.metrics.IncLockAcquire(metrics.LockBusy)
			s.metrics.IncAdmission(metrics.OutcomeBusy)
			return &AdmissionResult{Outcome: OutcomeBusy}, nil
		}
		s.metrics.IncAdmission(metrics.OutcomeError)
		return nil, fmt.Errorf("failed to acquire admission lock: %w", err)
	}
	s.metrics.IncLockAcquire(metrics.LockAcquired)

	// Release unconditionally, whatever the transaction did
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if _, err := s.locker.Release(releaseCtx, lockKey, ownerToken); err != nil {
			s.log.ErrorWithContext(releaseCtx, "failed to release admission lock", err, map[string]interface{}{
				"event_id": eventID.String(),
			})
		}
	}()

	bookingRef, err := generateBookingReference()
	if err != nil {
		s.metrics.IncAdmission(metrics.OutcomeError)
		return nil, fmt.Errorf("failed to generate booking reference: %w", err)
	}

	booking := &Booking{
		UserID:     userID,
		EventID:    eventID,
		Quantity:   quantity,
		BookingRef: bookingRef,
	}

	if err := s.repo.CreateWithCapacityCheck(ctx, booking); err != nil {
		switch {
		case errors.Is(err, ErrInsufficientCapacity):
			s.metrics.IncAdmission(metrics.OutcomeRejected)
			return &AdmissionResult{Outcome: OutcomeRejected, Reason: ReasonInsufficientCapacity}, nil
		case errors.Is(err, ErrEventNotAvailable):
			s.metrics.IncAdmission(metrics.OutcomeRejected)
			return &AdmissionResult{Outcome: OutcomeRejected, Reason: ReasonNotAvailable}, nil
		case errors.Is(err, ErrTxConflict):
			s.metrics.IncAdmission(metrics.OutcomeBusy)
			return &AdmissionResult{Outcome: OutcomeBusy}, nil
		case errors.Is(err, ErrDuplicateReference):
			// Genuine duplicate, surfaced as a conflict
			s.metrics.IncAdmission(metrics.OutcomeError)
			return nil, err
		default:
			s.metrics.IncAdmission(metrics.OutcomeError)
			return nil, fmt.Errorf("admission transaction failed: %w", err)
		}
	}

	s.metrics.IncAdmission(metrics.OutcomeConfirmed)
	s.log.LogBookingAdmitted(ctx, booking.ID.String(), eventID.String(), userID.String(), quantity)

	return &AdmissionResult{Outcome: OutcomeConfirmed, Booking: booking}, nil
}

// CancelBooking reverses an admitted booking inside one transaction. The
// cancellation cutoff is a business rule carried in config, not hardcoded.
func (s *service) CancelBooking(ctx context.Context, bookingID, userID uuid.UUID, reason string) (*Booking, error) {
	booking, err := s.repo.CancelWithCapacityRestore(ctx, bookingID, userID, reason, s.cfg.CancelCutoff)
	if err != nil {
		s.metrics.IncCancellation(metrics.ResultInvalid)
		return nil, err
	}

	s.metrics.IncCancellation(metrics.ResultOK)
	s.log.LogBookingCancelled(ctx, booking.ID.String(), booking.EventID.String(), userID.String())

	return booking, nil
}

// GetBooking retrieves a booking owned by userID.
func (s *service) GetBooking(ctx context.Context, bookingID, userID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrNotFound
	}
	return booking, nil
}

// GetBookingByReference retrieves a booking by its human-readable reference,
// scoped to the owner.
func (s *service) GetBookingByReference(ctx context.Context, ref string, userID uuid.UUID) (*Booking, error) {
	booking, err := s.repo.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrNotFound
	}
	return booking, nil
}

// GetUserBookings retrieves bookings for a specific user
func (s *service) GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	return s.repo.GetUserBookings(ctx, userID, query)
}
