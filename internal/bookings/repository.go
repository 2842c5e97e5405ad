package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"ticketly/internal/events"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// Admission: capacity check + booking insert + conditional decrement in
	// one serializable transaction.
	CreateWithCapacityCheck(ctx context.Context, booking *Booking) error

	// Cancellation: validation + status flip + conditional capacity restore
	// in one transaction.
	CancelWithCapacityRestore(ctx context.Context, bookingID, userID uuid.UUID, reason string, cutoff time.Duration) (*Booking, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByReference(ctx context.Context, ref string) (*Booking, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// CreateWithCapacityCheck admits a booking atomically. The event row is
// re-read under FOR UPDATE so a non-lock-respecting writer cannot slip in
// between check and write, and the decrement re-checks capacity at write time.
// Even with the advisory lock bypassed, capacity can never go negative.
func (r *repository) CreateWithCapacityCheck(ctx context.Context, booking *Booking) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event events.Event

		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", booking.EventID).
			First(&event).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotAvailable
			}
			return fmt.Errorf("failed to lock event: %w", err)
		}

		if !event.IsBookable(time.Now()) {
			return ErrEventNotAvailable
		}

		if event.AvailableCapacity < booking.Quantity {
			return ErrInsufficientCapacity
		}

		// Price snapshot at admission time
		booking.TotalAmount = event.Price * float64(booking.Quantity)
		booking.Status = StatusConfirmed

		if err := tx.Create(booking).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateReference
			}
			return fmt.Errorf("failed to create booking: %w", err)
		}

		// Conditional decrement: the write re-checks capacity so the
		// invariant holds even if the advisory lock layer misbehaves.
		res := tx.Model(&events.Event{}).
			Where("id = ? AND available_capacity >= ?", booking.EventID, booking.Quantity).
			Update("available_capacity", gorm.Expr("available_capacity - ?", booking.Quantity))
		if res.Error != nil {
			return fmt.Errorf("failed to decrement capacity: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientCapacity
		}

		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})

	if err != nil && isSerializationFailure(err) {
		return ErrTxConflict
	}
	return err
}

// CancelWithCapacityRestore reverses an admitted booking. Booking and event
// rows are locked in one transaction; the capacity restore is conditional so
// available can never exceed total.
func (r *repository) CancelWithCapacityRestore(ctx context.Context, bookingID, userID uuid.UUID, reason string, cutoff time.Duration) (*Booking, error) {
	var booking Booking

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", bookingID).
			First(&booking).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock booking: %w", err)
		}

		// Ownership failures look like absence to the caller
		if booking.UserID != userID {
			return ErrNotFound
		}

		if booking.IsCancelled() {
			return ErrAlreadyCancelled
		}

		var event events.Event
		err = tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", booking.EventID).
			First(&event).Error
		if err != nil {
			return fmt.Errorf("failed to lock event: %w", err)
		}

		if time.Until(event.DateTime) < cutoff {
			return ErrTooCloseToStart
		}

		now := time.Now()
		booking.Status = StatusCancelled
		booking.CancelledAt = &now
		booking.CancellationReason = reason
		booking.UpdatedAt = now

		err = tx.Model(&Booking{}).
			Where("id = ?", bookingID).
			Updates(map[string]interface{}{
				"status":              StatusCancelled,
				"cancelled_at":        now,
				"cancellation_reason": reason,
				"updated_at":          now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}

		res := tx.Model(&events.Event{}).
			Where("id = ? AND available_capacity + ? <= total_capacity", booking.EventID, booking.Quantity).
			Update("available_capacity", gorm.Expr("available_capacity + ?", booking.Quantity))
		if res.Error != nil {
			return fmt.Errorf("failed to restore capacity: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("capacity restore would exceed total capacity for event %s", booking.EventID)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetByReference(ctx context.Context, ref string) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).Where("booking_ref = ?", ref).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	var bookings []Booking
	var totalCount int64

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	baseQuery := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("user_id = ?", userID)

	if query.Status != "" {
		baseQuery = baseQuery.Where("status = ?", query.Status)
	}

	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit
	err := baseQuery.
		Order("created_at DESC").
		Offset(offset).
		Limit(query.Limit).
		Find(&bookings).Error

	return bookings, totalCount, err
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}

// isSerializationFailure reports whether err is a Postgres serialization
// failure (SQLSTATE 40001) or deadlock (40P01). Both are retryable.
func isSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "40001") || strings.Contains(msg, "40P01")
}

// CalculateTotalPages is a helper for paginated listings
func CalculateTotalPages(totalCount int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(totalCount) / float64(limit)))
}
