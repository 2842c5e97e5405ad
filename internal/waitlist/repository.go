package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketly/internal/events"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// Enroll appends a user to the end of an event's waitlist. Position
	// assignment is serialized through the event row lock.
	Enroll(ctx context.Context, userID, eventID uuid.UUID, quantity int) (*Entry, error)

	// Withdraw removes a user's active entry and closes the position gap.
	Withdraw(ctx context.Context, userID, eventID uuid.UUID) (*Entry, error)

	// PositionOf returns the user's entry plus how many entries and tickets
	// are queued ahead of it.
	PositionOf(ctx context.Context, userID, eventID uuid.UUID) (*Entry, int, int, error)

	// ActiveEntries returns the event's ACTIVE entries in position order.
	ActiveEntries(ctx context.Context, eventID uuid.UUID) ([]Entry, error)

	// MarkNotified flips an ACTIVE entry to NOTIFIED and opens its booking
	// window. Returns ErrInvalidTransition if the entry is no longer active.
	MarkNotified(ctx context.Context, entryID uuid.UUID, expiresAt time.Time) error

	// MarkConverted closes a NOTIFIED entry after the user booked, and
	// renumbers the entries behind it.
	MarkConverted(ctx context.Context, userID, eventID uuid.UUID) (*Entry, error)

	// ExpireLapsed expires NOTIFIED entries whose booking window passed and
	// renumbers behind each. Returns the number of entries expired.
	ExpireLapsed(ctx context.Context, now time.Time) (int, error)

	CountActive(ctx context.Context, eventID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Enroll locks the parent event row before computing max(position)+1, so two
// concurrent enrollments for the same event cannot read the same maximum.
func (r *repository) Enroll(ctx context.Context, userID, eventID uuid.UUID, quantity int) (*Entry, error) {
	var entry Entry

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event events.Event
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", eventID).
			First(&event).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("failed to lock event: %w", err)
		}

		if !event.IsBookable(time.Now()) {
			return ErrEventNotAvailable
		}

		var existing int64
		err = tx.Model(&Entry{}).
			Where("user_id = ? AND event_id = ?", userID, eventID).
			Where("status IN ?", []Status{StatusActive, StatusNotified}).
			Count(&existing).Error
		if err != nil {
			return fmt.Errorf("failed to check existing enrollment: %w", err)
		}
		if existing > 0 {
			return ErrAlreadyEnrolled
		}

		var maxPosition int
		err = tx.Model(&Entry{}).
			Where("event_id = ?", eventID).
			Where("status IN ?", []Status{StatusActive, StatusNotified}).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPosition).Error
		if err != nil {
			return fmt.Errorf("failed to compute tail position: %w", err)
		}

		entry = Entry{
			UserID:   userID,
			EventID:  eventID,
			Position: maxPosition + 1,
			Quantity: quantity,
			Status:   StatusActive,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to create waitlist entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// Withdraw deletes the active entry and decrements every position behind it,
// keeping positions dense.
func (r *repository) Withdraw(ctx context.Context, userID, eventID uuid.UUID) (*Entry, error) {
	var entry Entry

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND event_id = ? AND status = ?", userID, eventID, StatusActive).
			First(&entry).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotEnrolled
			}
			return fmt.Errorf("failed to lock waitlist entry: %w", err)
		}

		if err := tx.Delete(&Entry{}, "id = ?", entry.ID).Error; err != nil {
			return fmt.Errorf("failed to delete waitlist entry: %w", err)
		}

		return renumberBehind(tx, eventID, entry.Position)
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *repository) PositionOf(ctx context.Context, userID, eventID uuid.UUID) (*Entry, int, int, error) {
	var entry Entry
	db := r.db.WithContext(ctx)

	err := db.
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Where("status IN ?", []Status{StatusActive, StatusNotified}).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, 0, ErrNotEnrolled
		}
		return nil, 0, 0, err
	}

	type aheadRow struct {
		People   int
		Quantity int
	}
	var ahead aheadRow
	err = db.Model(&Entry{}).
		Where("event_id = ? AND position < ?", eventID, entry.Position).
		Where("status IN ?", []Status{StatusActive, StatusNotified}).
		Select("COUNT(*) AS people, COALESCE(SUM(quantity), 0) AS quantity").
		Scan(&ahead).Error
	if err != nil {
		return nil, 0, 0, err
	}

	return &entry, ahead.People, ahead.Quantity, nil
}

func (r *repository) ActiveEntries(ctx context.Context, eventID uuid.UUID) ([]Entry, error) {
	var entries []Entry
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND status = ?", eventID, StatusActive).
		Order("position ASC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) MarkNotified(ctx context.Context, entryID uuid.UUID, expiresAt time.Time) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&Entry{}).
		Where("id = ? AND status = ?", entryID, StatusActive).
		Updates(map[string]interface{}{
			"status":      StatusNotified,
			"notified_at": now,
			"expires_at":  expiresAt,
			"updated_at":  now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark entry notified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *repository) MarkConverted(ctx context.Context, userID, eventID uuid.UUID) (*Entry, error) {
	var entry Entry

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND event_id = ? AND status = ?", userID, eventID, StatusNotified).
			First(&entry).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotEnrolled
			}
			return fmt.Errorf("failed to lock waitlist entry: %w", err)
		}

		err = tx.Model(&Entry{}).
			Where("id = ?", entry.ID).
			Updates(map[string]interface{}{
				"status":     StatusConverted,
				"updated_at": time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to mark entry converted: %w", err)
		}

		return renumberBehind(tx, eventID, entry.Position)
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// ExpireLapsed is called by the background job. Each lapsed entry is expired
// in its own transaction so one failure does not hold the rest back.
func (r *repository) ExpireLapsed(ctx context.Context, now time.Time) (int, error) {
	var lapsed []Entry
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", StatusNotified, now).
		Order("event_id, position ASC").
		Find(&lapsed).Error
	if err != nil {
		return 0, fmt.Errorf("failed to scan lapsed entries: %w", err)
	}

	expired := 0
	for _, candidate := range lapsed {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var entry Entry
			err := tx.
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND status = ?", candidate.ID, StatusNotified).
				First(&entry).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					// Converted or withdrawn since the scan
					return nil
				}
				return err
			}

			if entry.ExpiresAt == nil || now.Before(*entry.ExpiresAt) {
				return nil
			}

			err = tx.Model(&Entry{}).
				Where("id = ?", entry.ID).
				Updates(map[string]interface{}{
					"status":     StatusExpired,
					"updated_at": time.Now(),
				}).Error
			if err != nil {
				return fmt.Errorf("failed to expire entry: %w", err)
			}

			if err := renumberBehind(tx, entry.EventID, entry.Position); err != nil {
				return err
			}

			expired++
			return nil
		})
		if err != nil {
			return expired, err
		}
	}

	return expired, nil
}

func (r *repository) CountActive(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Entry{}).
		Where("event_id = ? AND status = ?", eventID, StatusActive).
		Count(&count).Error
	return count, err
}

// renumberBehind shifts every queued entry behind the vacated position up by
// one, preserving the dense 1..N invariant.
func renumberBehind(tx *gorm.DB, eventID uuid.UUID, vacated int) error {
	err := tx.Model(&Entry{}).
		Where("event_id = ? AND position > ?", eventID, vacated).
		Where("status IN ?", []Status{StatusActive, StatusNotified}).
		Update("position", gorm.Expr("position - 1")).Error
	if err != nil {
		return fmt.Errorf("failed to renumber waitlist: %w", err)
	}
	return nil
}
