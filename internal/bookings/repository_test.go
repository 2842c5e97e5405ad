package bookings

import (
	"context"
	"testing"
	"time"

	"ticketly/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database with the production table
// shapes. Row-level locking clauses are no-ops on SQLite, so these tests
// exercise the transaction bodies and conditional writes, not lock contention.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	for _, stmt := range []string{
		`CREATE TABLE events (
			id text PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6)))),
			name text NOT NULL,
			description text,
			venue text NOT NULL,
			date_time datetime NOT NULL,
			total_capacity integer NOT NULL,
			available_capacity integer NOT NULL,
			price real NOT NULL,
			status text NOT NULL DEFAULT 'draft',
			created_by text NOT NULL,
			created_at datetime,
			updated_at datetime
		)`,
		`CREATE TABLE bookings (
			id text PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6)))),
			user_id text NOT NULL,
			event_id text NOT NULL,
			quantity integer NOT NULL,
			total_amount real NOT NULL,
			status text NOT NULL DEFAULT 'CONFIRMED',
			booking_ref text NOT NULL UNIQUE,
			created_at datetime,
			updated_at datetime,
			cancelled_at datetime,
			cancellation_reason text
		)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	return db
}

func seedEvent(t *testing.T, db *gorm.DB, capacity int, startsAt time.Time) *events.Event {
	t.Helper()
	event := &events.Event{
		ID:                uuid.New(),
		Name:              "Arena Night",
		Venue:             "Main Hall",
		DateTime:          startsAt,
		TotalCapacity:     capacity,
		AvailableCapacity: capacity,
		Price:             40,
		Status:            events.StatusPublished,
		CreatedBy:         uuid.New(),
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

func reloadEvent(t *testing.T, db *gorm.DB, id uuid.UUID) *events.Event {
	t.Helper()
	var event events.Event
	require.NoError(t, db.Where("id = ?", id).First(&event).Error)
	return &event
}

func TestCreateWithCapacityCheckStore(t *testing.T) {
	ctx := context.Background()

	t.Run("admits and decrements capacity", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		event := seedEvent(t, db, 5, time.Now().Add(48*time.Hour))

		booking := &Booking{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			EventID:    event.ID,
			Quantity:   3,
			BookingRef: "EVT-20260901-AAAAAA",
		}
		require.NoError(t, repo.CreateWithCapacityCheck(ctx, booking))

		assert.Equal(t, StatusConfirmed, booking.Status)
		assert.Equal(t, float64(120), booking.TotalAmount)
		assert.Equal(t, 2, reloadEvent(t, db, event.ID).AvailableCapacity)

		stored, err := repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.BookingRef, stored.BookingRef)
	})

	t.Run("rejects when the quantity exceeds availability", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		event := seedEvent(t, db, 2, time.Now().Add(48*time.Hour))

		booking := &Booking{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			EventID:    event.ID,
			Quantity:   3,
			BookingRef: "EVT-20260901-BBBBBB",
		}
		err := repo.CreateWithCapacityCheck(ctx, booking)
		assert.ErrorIs(t, err, ErrInsufficientCapacity)

		assert.Equal(t, 2, reloadEvent(t, db, event.ID).AvailableCapacity)
		var count int64
		require.NoError(t, db.Model(&Booking{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("rejects unpublished and past events", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)

		draft := seedEvent(t, db, 5, time.Now().Add(48*time.Hour))
		require.NoError(t, db.Model(&events.Event{}).Where("id = ?", draft.ID).Update("status", events.StatusDraft).Error)
		past := seedEvent(t, db, 5, time.Now().Add(-time.Hour))

		for _, eventID := range []uuid.UUID{draft.ID, past.ID, uuid.New()} {
			err := repo.CreateWithCapacityCheck(ctx, &Booking{
				ID:         uuid.New(),
				UserID:     uuid.New(),
				EventID:    eventID,
				Quantity:   1,
				BookingRef: "EVT-20260901-" + eventID.String()[:6],
			})
			assert.ErrorIs(t, err, ErrEventNotAvailable)
		}
	})

	t.Run("write-time guard rejects when capacity vanishes mid-transaction", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		event := seedEvent(t, db, 3, time.Now().Add(48*time.Hour))

		// Simulate a writer that ignores the advisory lock and grabs
		// capacity between the pre-check and the conditional decrement.
		err := db.Callback().Create().Before("gorm:create").Register("competing_writer", func(tx *gorm.DB) {
			if tx.Statement == nil || tx.Statement.Table != "bookings" {
				return
			}
			tx.Session(&gorm.Session{NewDB: true}).
				Model(&events.Event{}).
				Where("id = ?", event.ID).
				Update("available_capacity", gorm.Expr("available_capacity - ?", 2))
		})
		require.NoError(t, err)

		booking := &Booking{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			EventID:    event.ID,
			Quantity:   2,
			BookingRef: "EVT-20260901-CCCCCC",
		}
		err = repo.CreateWithCapacityCheck(ctx, booking)
		assert.ErrorIs(t, err, ErrInsufficientCapacity)

		// The whole transaction rolled back, competing update included
		assert.Equal(t, 3, reloadEvent(t, db, event.ID).AvailableCapacity)
		var count int64
		require.NoError(t, db.Model(&Booking{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("surfaces a booking reference collision", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		event := seedEvent(t, db, 10, time.Now().Add(48*time.Hour))

		first := &Booking{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			EventID:    event.ID,
			Quantity:   1,
			BookingRef: "EVT-20260901-DDDDDD",
		}
		require.NoError(t, repo.CreateWithCapacityCheck(ctx, first))

		dup := &Booking{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			EventID:    event.ID,
			Quantity:   1,
			BookingRef: "EVT-20260901-DDDDDD",
		}
		err := repo.CreateWithCapacityCheck(ctx, dup)
		assert.ErrorIs(t, err, ErrDuplicateReference)

		// The failed admission must not consume capacity
		assert.Equal(t, 9, reloadEvent(t, db, event.ID).AvailableCapacity)
	})
}

func TestCancelWithCapacityRestoreStore(t *testing.T) {
	ctx := context.Background()
	cutoff := 24 * time.Hour

	admit := func(t *testing.T, repo Repository, eventID uuid.UUID, quantity int) *Booking {
		t.Helper()
		booking := &Booking{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			EventID:    eventID,
			Quantity:   quantity,
			BookingRef: "EVT-20260901-" + uuid.NewString()[:6],
		}
		require.NoError(t, repo.CreateWithCapacityCheck(ctx, booking))
		return booking
	}

	t.Run("cancels outside the cutoff and restores capacity", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		event := seedEvent(t, db, 5, time.Now().Add(25*time.Hour))
		booking := admit(t, repo, event.ID, 2)
		require.Equal(t, 3, reloadEvent(t, db, event.ID).AvailableCapacity)

		cancelled, err := repo.CancelWithCapacityRestore(ctx, booking.ID, booking.UserID, "plans changed", cutoff)
		require.NoError(t, err)

		assert.Equal(t, StatusCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CancelledAt)
		assert.Equal(t, "plans changed", cancelled.CancellationReason)
		assert.Equal(t, 5, reloadEvent(t, db, event.ID).AvailableCapacity)
	})

	t.Run("rejects inside the cutoff window", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		event := seedEvent(t, db, 5, time.Now().Add(23*time.Hour))
		booking := admit(t, repo, event.ID, 2)

		_, err := repo.CancelWithCapacityRestore(ctx, booking.ID, booking.UserID, "", cutoff)
		assert.ErrorIs(t, err, ErrTooCloseToStart)

		// Nothing restored, nothing flipped
		assert.Equal(t, 3, reloadEvent(t, db, event.ID).AvailableCapacity)
		stored, err := repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, stored.Status)
	})

	t.Run("restores capacity exactly once", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		event := seedEvent(t, db, 5, time.Now().Add(48*time.Hour))
		booking := admit(t, repo, event.ID, 2)

		_, err := repo.CancelWithCapacityRestore(ctx, booking.ID, booking.UserID, "", cutoff)
		require.NoError(t, err)

		_, err = repo.CancelWithCapacityRestore(ctx, booking.ID, booking.UserID, "", cutoff)
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
		assert.Equal(t, 5, reloadEvent(t, db, event.ID).AvailableCapacity)
	})

	t.Run("hides other users' bookings", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		event := seedEvent(t, db, 5, time.Now().Add(48*time.Hour))
		booking := admit(t, repo, event.ID, 1)

		_, err := repo.CancelWithCapacityRestore(ctx, booking.ID, uuid.New(), "", cutoff)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = repo.CancelWithCapacityRestore(ctx, uuid.New(), booking.UserID, "", cutoff)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("refuses a restore that would exceed total capacity", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewRepository(db)
		event := seedEvent(t, db, 5, time.Now().Add(48*time.Hour))
		booking := admit(t, repo, event.ID, 2)

		// Corrupt availability past what the booking accounts for
		require.NoError(t, db.Model(&events.Event{}).
			Where("id = ?", event.ID).
			Update("available_capacity", 4).Error)

		_, err := repo.CancelWithCapacityRestore(ctx, booking.ID, booking.UserID, "", cutoff)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrAlreadyCancelled)

		// Rolled back: the booking stays CONFIRMED
		stored, err := repo.GetByID(ctx, booking.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, stored.Status)
	})
}

func TestGetByReferenceStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRepository(db)
	event := seedEvent(t, db, 5, time.Now().Add(48*time.Hour))

	booking := &Booking{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		EventID:    event.ID,
		Quantity:   1,
		BookingRef: "EVT-20260901-EEEEEE",
	}
	require.NoError(t, repo.CreateWithCapacityCheck(ctx, booking))

	found, err := repo.GetByReference(ctx, booking.BookingRef)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, found.ID)

	_, err = repo.GetByReference(ctx, "EVT-20260901-FFFFFF")
	assert.ErrorIs(t, err, ErrNotFound)
}
