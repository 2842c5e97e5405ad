package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"ticketly/internal/bookings"
	"ticketly/internal/waitlist"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmitter struct {
	result *bookings.AdmissionResult
	err    error
}

func (f *fakeAdmitter) Admit(ctx context.Context, userID, eventID uuid.UUID, quantity int) (*bookings.AdmissionResult, error) {
	return f.result, f.err
}

type fakeWaitlist struct {
	enrollErr    error
	enrollCalls  int
	promoteCalls int
	promoteFreed int
}

func (f *fakeWaitlist) Enroll(ctx context.Context, userID, eventID uuid.UUID, quantity int) (*waitlist.Entry, error) {
	f.enrollCalls++
	if f.enrollErr != nil {
		return nil, f.enrollErr
	}
	return &waitlist.Entry{ID: uuid.New(), UserID: userID, EventID: eventID, Quantity: quantity, Position: 1, Status: waitlist.StatusActive}, nil
}

func (f *fakeWaitlist) Promote(ctx context.Context, eventID uuid.UUID, freedQuantity int) (*waitlist.PromotionResult, error) {
	f.promoteCalls++
	f.promoteFreed = freedQuantity
	return &waitlist.PromotionResult{EventID: eventID, FreedQuantity: freedQuantity}, nil
}

func admissionJob(quantity int) *AdmissionJob {
	return &AdmissionJob{
		JobID:      uuid.New(),
		UserID:     uuid.New(),
		EventID:    uuid.New(),
		Quantity:   quantity,
		EnqueuedAt: time.Now(),
	}
}

func TestHandleAdmission(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed admission completes the job", func(t *testing.T) {
		admitter := &fakeAdmitter{result: &bookings.AdmissionResult{
			Outcome: bookings.OutcomeConfirmed,
			Booking: &bookings.Booking{ID: uuid.New()},
		}}
		wl := &fakeWaitlist{}
		handler := NewJobHandler(admitter, wl, nil)

		err := handler.HandleAdmission(ctx, admissionJob(2))
		require.NoError(t, err)
		assert.Equal(t, 0, wl.enrollCalls)
	})

	t.Run("capacity exhaustion diverts to the waitlist", func(t *testing.T) {
		admitter := &fakeAdmitter{result: &bookings.AdmissionResult{
			Outcome: bookings.OutcomeRejected,
			Reason:  bookings.ReasonInsufficientCapacity,
		}}
		wl := &fakeWaitlist{}
		handler := NewJobHandler(admitter, wl, nil)

		err := handler.HandleAdmission(ctx, admissionJob(2))
		require.NoError(t, err)
		assert.Equal(t, 1, wl.enrollCalls)
	})

	t.Run("already enrolled is not an error", func(t *testing.T) {
		admitter := &fakeAdmitter{result: &bookings.AdmissionResult{
			Outcome: bookings.OutcomeRejected,
			Reason:  bookings.ReasonInsufficientCapacity,
		}}
		wl := &fakeWaitlist{enrollErr: waitlist.ErrAlreadyEnrolled}
		handler := NewJobHandler(admitter, wl, nil)

		assert.NoError(t, handler.HandleAdmission(ctx, admissionJob(2)))
	})

	t.Run("other rejections do not touch the waitlist", func(t *testing.T) {
		admitter := &fakeAdmitter{result: &bookings.AdmissionResult{
			Outcome: bookings.OutcomeRejected,
			Reason:  bookings.ReasonNotAvailable,
		}}
		wl := &fakeWaitlist{}
		handler := NewJobHandler(admitter, wl, nil)

		require.NoError(t, handler.HandleAdmission(ctx, admissionJob(2)))
		assert.Equal(t, 0, wl.enrollCalls)
	})

	t.Run("busy outcome is retried via error", func(t *testing.T) {
		admitter := &fakeAdmitter{result: &bookings.AdmissionResult{Outcome: bookings.OutcomeBusy}}
		handler := NewJobHandler(admitter, &fakeWaitlist{}, nil)

		assert.Error(t, handler.HandleAdmission(ctx, admissionJob(1)))
	})

	t.Run("engine errors propagate for redelivery", func(t *testing.T) {
		admitter := &fakeAdmitter{err: errors.New("database down")}
		handler := NewJobHandler(admitter, &fakeWaitlist{}, nil)

		assert.Error(t, handler.HandleAdmission(ctx, admissionJob(1)))
	})
}

func TestHandlePromotion(t *testing.T) {
	ctx := context.Background()
	wl := &fakeWaitlist{}
	handler := NewJobHandler(&fakeAdmitter{}, wl, nil)

	job := &PromotionJob{
		JobID:         uuid.New(),
		EventID:       uuid.New(),
		FreedQuantity: 3,
		EnqueuedAt:    time.Now(),
	}

	require.NoError(t, handler.HandlePromotion(ctx, job))
	assert.Equal(t, 1, wl.promoteCalls)
	assert.Equal(t, 3, wl.promoteFreed)
}

func TestJobRoundTrip(t *testing.T) {
	job := admissionJob(4)
	data, err := job.ToJSON()
	require.NoError(t, err)

	decoded, err := AdmissionJobFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, job.JobID, decoded.JobID)
	assert.Equal(t, job.Quantity, decoded.Quantity)

	_, err = PromotionJobFromJSON([]byte("{not json"))
	assert.Error(t, err)
}
