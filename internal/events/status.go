package events

// EventStatus represents the lifecycle status of an event
type EventStatus string

const (
	StatusDraft     EventStatus = "draft"
	StatusPublished EventStatus = "published"
	StatusCancelled EventStatus = "cancelled"
	StatusCompleted EventStatus = "completed"
)

// IsValid checks if the event status is valid
func (s EventStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status
func (s EventStatus) CanTransitionTo(target EventStatus) bool {
	validTransitions := map[EventStatus][]EventStatus{
		StatusDraft:     {StatusPublished, StatusCancelled},
		StatusPublished: {StatusCancelled, StatusCompleted},
		StatusCancelled: {},
		StatusCompleted: {},
	}

	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
