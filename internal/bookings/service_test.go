package bookings

import (
	"context"
	"sync"
	"testing"
	"time"

	"ticketly/internal/locks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo enforces a capacity pool in memory so the admission path can be
// exercised without Postgres.
type fakeRepo struct {
	mu        sync.Mutex
	capacity  int
	bookable  bool
	createErr error
	cancelErr error
	created   []*Booking
	cancelled []uuid.UUID
}

func newFakeRepo(capacity int) *fakeRepo {
	return &fakeRepo{capacity: capacity, bookable: true}
}

func (r *fakeRepo) CreateWithCapacityCheck(ctx context.Context, booking *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return r.createErr
	}
	if !r.bookable {
		return ErrEventNotAvailable
	}
	if r.capacity < booking.Quantity {
		return ErrInsufficientCapacity
	}

	r.capacity -= booking.Quantity
	booking.ID = uuid.New()
	booking.Status = StatusConfirmed
	r.created = append(r.created, booking)
	return nil
}

func (r *fakeRepo) CancelWithCapacityRestore(ctx context.Context, bookingID, userID uuid.UUID, reason string, cutoff time.Duration) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancelErr != nil {
		return nil, r.cancelErr
	}
	r.cancelled = append(r.cancelled, bookingID)
	now := time.Now()
	return &Booking{
		ID:          bookingID,
		UserID:      userID,
		EventID:     uuid.New(),
		Quantity:    2,
		Status:      StatusCancelled,
		CancelledAt: &now,
	}, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.created {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) GetByReference(ctx context.Context, ref string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.created {
		if b.BookingRef == ref {
			return b, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	return nil, 0, nil
}

// fakeLocker simulates the advisory lock without Redis.
type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	busy     bool
	acquires int
	releases int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]string{}}
}

func (l *fakeLocker) AcquireWithRetry(ctx context.Context, key, ownerToken string, ttl time.Duration, attempts int, backoff time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy {
		return locks.ErrNotAcquired
	}
	if _, taken := l.held[key]; taken {
		return locks.ErrNotAcquired
	}
	l.held[key] = ownerToken
	l.acquires++
	return nil
}

func (l *fakeLocker) Release(ctx context.Context, key, ownerToken string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != ownerToken {
		return false, nil
	}
	delete(l.held, key)
	l.releases++
	return true, nil
}

func newTestService(repo Repository, locker Locker) Service {
	return NewService(repo, locker, nil, nil, DefaultConfig())
}

func TestAdmit(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	eventID := uuid.New()

	t.Run("confirms when capacity suffices", func(t *testing.T) {
		repo := newFakeRepo(10)
		locker := newFakeLocker()
		svc := newTestService(repo, locker)

		result, err := svc.Admit(ctx, userID, eventID, 3)
		require.NoError(t, err)
		assert.Equal(t, OutcomeConfirmed, result.Outcome)
		require.NotNil(t, result.Booking)
		assert.Equal(t, StatusConfirmed, result.Booking.Status)
		assert.NotEmpty(t, result.Booking.BookingRef)
		assert.Equal(t, 7, repo.capacity)
	})

	t.Run("rejects zero and oversized quantity without locking", func(t *testing.T) {
		repo := newFakeRepo(10)
		locker := newFakeLocker()
		svc := newTestService(repo, locker)

		for _, quantity := range []int{0, -1, 11} {
			result, err := svc.Admit(ctx, userID, eventID, quantity)
			require.NoError(t, err)
			assert.Equal(t, OutcomeRejected, result.Outcome)
			assert.Equal(t, ReasonInvalidQuantity, result.Reason)
		}
		assert.Equal(t, 0, locker.acquires)
	})

	t.Run("rejects when capacity is insufficient", func(t *testing.T) {
		repo := newFakeRepo(2)
		locker := newFakeLocker()
		svc := newTestService(repo, locker)

		result, err := svc.Admit(ctx, userID, eventID, 3)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRejected, result.Outcome)
		assert.Equal(t, ReasonInsufficientCapacity, result.Reason)
		assert.Equal(t, 2, repo.capacity)
	})

	t.Run("rejects when event is not bookable", func(t *testing.T) {
		repo := newFakeRepo(10)
		repo.bookable = false
		svc := newTestService(repo, newFakeLocker())

		result, err := svc.Admit(ctx, userID, eventID, 1)
		require.NoError(t, err)
		assert.Equal(t, OutcomeRejected, result.Outcome)
		assert.Equal(t, ReasonNotAvailable, result.Reason)
	})

	t.Run("reports busy when the lock is contended", func(t *testing.T) {
		repo := newFakeRepo(10)
		locker := newFakeLocker()
		locker.busy = true
		svc := newTestService(repo, locker)

		result, err := svc.Admit(ctx, userID, eventID, 1)
		require.NoError(t, err)
		assert.Equal(t, OutcomeBusy, result.Outcome)
		assert.Empty(t, repo.created)
	})

	t.Run("reports busy on serialization conflict", func(t *testing.T) {
		repo := newFakeRepo(10)
		repo.createErr = ErrTxConflict
		svc := newTestService(repo, newFakeLocker())

		result, err := svc.Admit(ctx, userID, eventID, 1)
		require.NoError(t, err)
		assert.Equal(t, OutcomeBusy, result.Outcome)
	})

	t.Run("surfaces duplicate reference as error", func(t *testing.T) {
		repo := newFakeRepo(10)
		repo.createErr = ErrDuplicateReference
		svc := newTestService(repo, newFakeLocker())

		_, err := svc.Admit(ctx, userID, eventID, 1)
		assert.ErrorIs(t, err, ErrDuplicateReference)
	})

	t.Run("releases the lock on every outcome", func(t *testing.T) {
		repo := newFakeRepo(1)
		locker := newFakeLocker()
		svc := newTestService(repo, locker)

		_, err := svc.Admit(ctx, userID, eventID, 1)
		require.NoError(t, err)
		_, err = svc.Admit(ctx, userID, eventID, 1)
		require.NoError(t, err)

		assert.Equal(t, locker.acquires, locker.releases)
		assert.Empty(t, locker.held)
	})
}

func TestAdmitConcurrentLastUnit(t *testing.T) {
	// Two requests race for one remaining ticket. The fake repo enforces the
	// conditional decrement, so exactly one admission may confirm regardless
	// of interleaving.
	ctx := context.Background()
	eventID := uuid.New()

	repo := newFakeRepo(1)
	svc := newTestService(repo, newFakeLocker())

	const racers = 8
	results := make(chan *AdmissionResult, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.Admit(ctx, uuid.New(), eventID, 1)
			if err == nil {
				results <- result
			}
		}()
	}
	wg.Wait()
	close(results)

	confirmed := 0
	for result := range results {
		if result.Outcome == OutcomeConfirmed {
			confirmed++
		}
	}

	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 0, repo.capacity)
	assert.Len(t, repo.created, 1)
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	bookingID := uuid.New()

	t.Run("cancels through the repository", func(t *testing.T) {
		repo := newFakeRepo(10)
		svc := newTestService(repo, newFakeLocker())

		booking, err := svc.CancelBooking(ctx, bookingID, userID, "plans changed")
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, booking.Status)
		assert.Equal(t, []uuid.UUID{bookingID}, repo.cancelled)
	})

	t.Run("propagates cutoff rejection", func(t *testing.T) {
		repo := newFakeRepo(10)
		repo.cancelErr = ErrTooCloseToStart
		svc := newTestService(repo, newFakeLocker())

		_, err := svc.CancelBooking(ctx, bookingID, userID, "")
		assert.ErrorIs(t, err, ErrTooCloseToStart)
	})

	t.Run("propagates double cancellation", func(t *testing.T) {
		repo := newFakeRepo(10)
		repo.cancelErr = ErrAlreadyCancelled
		svc := newTestService(repo, newFakeLocker())

		_, err := svc.CancelBooking(ctx, bookingID, userID, "")
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
	})
}

func TestGetBookingOwnership(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(10)
	svc := newTestService(repo, newFakeLocker())

	owner := uuid.New()
	result, err := svc.Admit(ctx, owner, uuid.New(), 1)
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, result.Outcome)

	got, err := svc.GetBooking(ctx, result.Booking.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, result.Booking.ID, got.ID)

	// Another user sees not-found, not forbidden
	_, err = svc.GetBooking(ctx, result.Booking.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBookingByReference(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(10)
	svc := newTestService(repo, newFakeLocker())

	owner := uuid.New()
	result, err := svc.Admit(ctx, owner, uuid.New(), 2)
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, result.Outcome)

	got, err := svc.GetBookingByReference(ctx, result.Booking.BookingRef, owner)
	require.NoError(t, err)
	assert.Equal(t, result.Booking.ID, got.ID)

	_, err = svc.GetBookingByReference(ctx, result.Booking.BookingRef, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetBookingByReference(ctx, "EVT-20990101-ZZZZZZ", owner)
	assert.ErrorIs(t, err, ErrNotFound)
}
