package events

import (
	"errors"
	"net/http"

	"ticketly/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// requesterID reads the caller identity injected by the upstream auth layer.
func requesterID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.GetHeader("X-User-ID"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Missing or invalid X-User-ID header", nil)
		return uuid.Nil, false
	}
	return id, true
}

// CreateEvent handles POST /api/v1/events
func (c *Controller) CreateEvent(ctx *gin.Context) {
	userID, ok := requesterID(ctx)
	if !ok {
		return
	}

	var req CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	event, err := c.service.CreateEvent(ctx.Request.Context(), userID, req)
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Failed to create event", err.Error())
		return
	}

	response.Success(ctx, http.StatusCreated, "Event created", event)
}

// GetEvent handles GET /api/v1/events/:id
func (c *Controller) GetEvent(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid event ID", nil)
		return
	}

	event, err := c.service.GetEvent(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(ctx, http.StatusNotFound, "Event not found", nil)
			return
		}
		response.Error(ctx, http.StatusInternalServerError, "Failed to get event", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Event retrieved", event)
}

// ListEvents handles GET /api/v1/events
func (c *Controller) ListEvents(ctx *gin.Context) {
	var query EventListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	events, err := c.service.ListEvents(ctx.Request.Context(), query)
	if err != nil {
		response.Error(ctx, http.StatusInternalServerError, "Failed to list events", err.Error())
		return
	}

	response.Success(ctx, http.StatusOK, "Events retrieved", events)
}

// UpdateStatus handles PATCH /api/v1/events/:id/status
func (c *Controller) UpdateStatus(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid event ID", nil)
		return
	}

	var req UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	event, err := c.service.UpdateEventStatus(ctx.Request.Context(), eventID, EventStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.Error(ctx, http.StatusNotFound, "Event not found", nil)
		case errors.Is(err, ErrInvalidTransition):
			response.Error(ctx, http.StatusConflict, "Invalid status transition", err.Error())
		default:
			response.Error(ctx, http.StatusInternalServerError, "Failed to update event", err.Error())
		}
		return
	}

	response.Success(ctx, http.StatusOK, "Event status updated", event)
}

// IncreaseCapacity handles PATCH /api/v1/events/:id/capacity
func (c *Controller) IncreaseCapacity(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid event ID", nil)
		return
	}

	var req IncreaseCapacityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Error(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	event, err := c.service.IncreaseCapacity(ctx.Request.Context(), eventID, req.Additional)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.Error(ctx, http.StatusNotFound, "Event not found", nil)
		case errors.Is(err, ErrCapacityExceeded):
			response.Error(ctx, http.StatusConflict, "Capacity change rejected", err.Error())
		default:
			response.Error(ctx, http.StatusInternalServerError, "Failed to update capacity", err.Error())
		}
		return
	}

	response.Success(ctx, http.StatusOK, "Capacity increased", event)
}
