package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Booking is one admitted reservation against an event. Created only by the
// admission transaction that decrements capacity; moved to CANCELLED only by
// the cancellation transaction that restores it.
type Booking struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID             uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	EventID            uuid.UUID  `gorm:"type:uuid;index;not null" json:"event_id"`
	Quantity           int        `gorm:"not null;check:quantity > 0" json:"quantity"`
	TotalAmount        float64    `gorm:"not null" json:"total_amount"`
	Status             Status     `gorm:"type:varchar(20);check:status IN ('CONFIRMED', 'CANCELLED');default:'CONFIRMED'" json:"status"`
	BookingRef         string     `gorm:"unique;not null" json:"booking_ref"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

func (b *Booking) IsConfirmed() bool {
	return b.Status == StatusConfirmed
}

func (b *Booking) IsCancelled() bool {
	return b.Status == StatusCancelled
}

// AdmissionResult is the outcome of an admission attempt. Booking is set only
// when Outcome is CONFIRMED; Reason only when REJECTED.
type AdmissionResult struct {
	Outcome AdmissionOutcome `json:"outcome"`
	Booking *Booking         `json:"booking,omitempty"`
	Reason  RejectReason     `json:"reason,omitempty"`
}

// CreateBookingRequest represents a booking request body
type CreateBookingRequest struct {
	EventID  string `json:"event_id" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"required,min=1,max=10"`
}

// CancelBookingRequest represents a cancellation request body
type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// BookingListQuery represents query filters for booking listings
type BookingListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status string `form:"status" binding:"omitempty,oneof=CONFIRMED CANCELLED"`
}
