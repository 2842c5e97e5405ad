package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is the capacity-limited resource being booked. AvailableCapacity is
// mutated only inside a serialized transaction holding a row lock: decremented
// by an admitted booking, incremented by a cancellation or an administrative
// capacity increase.
type Event struct {
	ID                uuid.UUID   `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string      `json:"name" gorm:"not null;size:255"`
	Description       string      `json:"description" gorm:"type:text"`
	Venue             string      `json:"venue" gorm:"not null;size:255"`
	DateTime          time.Time   `json:"date_time" gorm:"not null"`
	TotalCapacity     int         `json:"total_capacity" gorm:"not null;check:total_capacity > 0"`
	AvailableCapacity int         `json:"available_capacity" gorm:"not null;check:available_capacity >= 0;check:available_capacity <= total_capacity"`
	Price             float64     `json:"price" gorm:"not null;check:price >= 0"`
	Status            EventStatus `json:"status" gorm:"type:varchar(20);default:'draft'"`

	CreatedBy uuid.UUID `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}

// IsBookable reports whether the event accepts admissions right now.
func (e *Event) IsBookable(now time.Time) bool {
	return e.Status == StatusPublished && e.DateTime.After(now)
}

type EventResponse struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Description       string      `json:"description"`
	Venue             string      `json:"venue"`
	DateTime          time.Time   `json:"date_time"`
	TotalCapacity     int         `json:"total_capacity"`
	AvailableCapacity int         `json:"available_capacity"`
	Price             float64     `json:"price"`
	Status            EventStatus `json:"status"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

type CreateEventRequest struct {
	Name          string    `json:"name" binding:"required,min=3,max=255"`
	Description   string    `json:"description" binding:"max=2000"`
	Venue         string    `json:"venue" binding:"required,min=3,max=255"`
	DateTime      time.Time `json:"date_time" binding:"required,futuredate"`
	TotalCapacity int       `json:"total_capacity" binding:"required,min=1,max=100000"`
	Price         float64   `json:"price" binding:"required,min=0"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft published cancelled completed"`
}

type IncreaseCapacityRequest struct {
	Additional int `json:"additional" binding:"required,min=1,max=100000"`
}

type EventListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=draft published cancelled completed"`
	Upcoming bool   `form:"upcoming"`
}

// ToResponse converts an Event to its API shape
func (e *Event) ToResponse() EventResponse {
	return EventResponse{
		ID:                e.ID.String(),
		Name:              e.Name,
		Description:       e.Description,
		Venue:             e.Venue,
		DateTime:          e.DateTime,
		TotalCapacity:     e.TotalCapacity,
		AvailableCapacity: e.AvailableCapacity,
		Price:             e.Price,
		Status:            e.Status,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}
