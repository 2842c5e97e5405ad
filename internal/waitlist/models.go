package waitlist

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a waitlist entry
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusNotified  Status = "NOTIFIED"
	StatusConverted Status = "CONVERTED"
	StatusExpired   Status = "EXPIRED"
)

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusNotified, StatusConverted, StatusExpired:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	validTransitions := map[Status][]Status{
		StatusActive:    {StatusNotified},
		StatusNotified:  {StatusConverted, StatusExpired},
		StatusConverted: {},
		StatusExpired:   {},
	}

	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Entry represents a user's place in an event's waitlist. Positions are
// dense and 1-indexed per event: whenever an entry leaves the queue, every
// entry behind it moves up by one.
type Entry struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID     uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	EventID    uuid.UUID  `json:"event_id" gorm:"type:uuid;not null;index"`
	Position   int        `json:"position" gorm:"not null;index"`
	Quantity   int        `json:"quantity" gorm:"not null;check:quantity > 0"`
	Status     Status     `json:"status" gorm:"type:varchar(20);not null;index;default:'ACTIVE'"`
	JoinedAt   time.Time  `json:"joined_at" gorm:"not null"`
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Entry) TableName() string {
	return "waitlist_entries"
}

// IsActive returns true if the entry is still waiting
func (e *Entry) IsActive() bool {
	return e.Status == StatusActive
}

// IsNotified returns true if the user has been told a spot is available
func (e *Entry) IsNotified() bool {
	return e.Status == StatusNotified
}

// WindowLapsed returns true if the booking window after notification has passed
func (e *Entry) WindowLapsed(now time.Time) bool {
	return e.Status == StatusNotified && e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// JoinWaitlistRequest represents a request to join an event's waitlist
type JoinWaitlistRequest struct {
	EventID  string `json:"event_id" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"required,min=1,max=10"`
}

// PositionInfo describes where a user stands in the queue
type PositionInfo struct {
	EntryID       uuid.UUID  `json:"entry_id"`
	EventID       uuid.UUID  `json:"event_id"`
	Position      int        `json:"position"`
	Quantity      int        `json:"quantity"`
	Status        Status     `json:"status"`
	PeopleAhead   int        `json:"people_ahead"`
	QuantityAhead int        `json:"quantity_ahead"`
	TotalWaiting  int64      `json:"total_waiting"`
	JoinedAt      time.Time  `json:"joined_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// PromotionResult summarizes one promotion scan
type PromotionResult struct {
	EventID       uuid.UUID `json:"event_id"`
	FreedQuantity int       `json:"freed_quantity"`
	NotifiedCount int       `json:"notified_count"`
	Notified      []*Entry  `json:"notified,omitempty"`
}
