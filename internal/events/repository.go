package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	List(ctx context.Context, query EventListQuery) ([]Event, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status EventStatus) (*Event, error)
	IncreaseCapacity(ctx context.Context, id uuid.UUID, additional int) (*Event, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, event *Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) List(ctx context.Context, query EventListQuery) ([]Event, int64, error) {
	var events []Event
	var totalCount int64

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	baseQuery := r.db.WithContext(ctx).Model(&Event{})
	if query.Status != "" {
		baseQuery = baseQuery.Where("status = ?", query.Status)
	}
	if query.Upcoming {
		baseQuery = baseQuery.Where("date_time > ?", time.Now())
	}

	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit
	err := baseQuery.
		Order("date_time ASC").
		Offset(offset).
		Limit(query.Limit).
		Find(&events).Error

	return events, totalCount, err
}

// UpdateStatus applies a validated status transition under a row lock.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status EventStatus) (*Event, error) {
	var event Event

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock event: %w", err)
		}

		if !event.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, event.Status, status)
		}

		event.Status = status
		event.UpdatedAt = time.Now()

		return tx.Model(&Event{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     status,
				"updated_at": event.UpdatedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return &event, nil
}

// IncreaseCapacity is the only capacity mutation outside the booking paths.
// It raises total and available together under a row lock so the
// conservation invariant (total == available + confirmed quantities) holds.
func (r *repository) IncreaseCapacity(ctx context.Context, id uuid.UUID, additional int) (*Event, error) {
	if additional <= 0 {
		return nil, ErrCapacityExceeded
	}

	var event Event

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock event: %w", err)
		}

		event.TotalCapacity += additional
		event.AvailableCapacity += additional
		event.UpdatedAt = time.Now()

		return tx.Model(&Event{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"total_capacity":     event.TotalCapacity,
				"available_capacity": event.AvailableCapacity,
				"updated_at":         event.UpdatedAt,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	return &event, nil
}
