package database

import (
	"ticketly/internal/bookings"
	"ticketly/internal/events"
	"ticketly/internal/waitlist"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&events.Event{},
		&bookings.Booking{},
		&waitlist.Entry{},
	); err != nil {
		return err
	}
	return migrateConstraints(db)
}

// migrateConstraints adds constraints AutoMigrate cannot express
func migrateConstraints(db *gorm.DB) error {
	// One active waitlist entry per (user, event)
	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_waitlist_active_user_event
		ON waitlist_entries (user_id, event_id)
		WHERE status = 'ACTIVE';
	`).Error
}
