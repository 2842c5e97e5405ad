package events

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Service interface defines the contract for event business logic
type Service interface {
	CreateEvent(ctx context.Context, createdBy uuid.UUID, req CreateEventRequest) (*EventResponse, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*EventResponse, error)
	ListEvents(ctx context.Context, query EventListQuery) (*PaginatedEvents, error)
	UpdateEventStatus(ctx context.Context, id uuid.UUID, status EventStatus) (*EventResponse, error)
	IncreaseCapacity(ctx context.Context, id uuid.UUID, additional int) (*EventResponse, error)
}

type PaginatedEvents struct {
	Events     []EventResponse `json:"events"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

type service struct {
	repo Repository
}

// NewService creates a new event service instance
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// CreateEvent creates a draft event. Available capacity starts equal to total.
func (s *service) CreateEvent(ctx context.Context, createdBy uuid.UUID, req CreateEventRequest) (*EventResponse, error) {
	if req.DateTime.Before(time.Now()) {
		return nil, fmt.Errorf("event date must be in the future")
	}

	event := &Event{
		Name:              req.Name,
		Description:       req.Description,
		Venue:             req.Venue,
		DateTime:          req.DateTime,
		TotalCapacity:     req.TotalCapacity,
		AvailableCapacity: req.TotalCapacity,
		Price:             req.Price,
		Status:            StatusDraft,
		CreatedBy:         createdBy,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	resp := event.ToResponse()
	return &resp, nil
}

func (s *service) GetEvent(ctx context.Context, id uuid.UUID) (*EventResponse, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := event.ToResponse()
	return &resp, nil
}

func (s *service) ListEvents(ctx context.Context, query EventListQuery) (*PaginatedEvents, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	events, totalCount, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	responses := make([]EventResponse, 0, len(events))
	for i := range events {
		responses = append(responses, events[i].ToResponse())
	}

	return &PaginatedEvents{
		Events:     responses,
		TotalCount: totalCount,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: int(math.Ceil(float64(totalCount) / float64(query.Limit))),
	}, nil
}

func (s *service) UpdateEventStatus(ctx context.Context, id uuid.UUID, status EventStatus) (*EventResponse, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	event, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	resp := event.ToResponse()
	return &resp, nil
}

func (s *service) IncreaseCapacity(ctx context.Context, id uuid.UUID, additional int) (*EventResponse, error) {
	event, err := s.repo.IncreaseCapacity(ctx, id, additional)
	if err != nil {
		return nil, err
	}

	resp := event.ToResponse()
	return &resp, nil
}
