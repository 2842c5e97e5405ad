package waitlist

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

func requesterID(ctx *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(ctx.GetHeader("X-User-ID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid X-User-ID header"})
		return uuid.Nil, false
	}
	return userID, true
}

// Join handles POST /api/v1/waitlist
func (c *Controller) Join(ctx *gin.Context) {
	userID, ok := requesterID(ctx)
	if !ok {
		return
	}

	var req JoinWaitlistRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	entry, err := c.service.Enroll(ctx.Request.Context(), userID, eventID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyEnrolled):
			ctx.JSON(http.StatusConflict, gin.H{"error": "Already on the waitlist for this event"})
		case errors.Is(err, ErrEventNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		case errors.Is(err, ErrEventNotAvailable):
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Event is not open for waitlisting"})
		case errors.Is(err, ErrInvalidQuantity):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quantity"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to join waitlist",
				"details": err.Error(),
			})
		}
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Added to waitlist",
		"data":    entry,
	})
}

// Leave handles DELETE /api/v1/waitlist/:eventId
func (c *Controller) Leave(ctx *gin.Context) {
	userID, ok := requesterID(ctx)
	if !ok {
		return
	}

	eventID, err := uuid.Parse(ctx.Param("eventId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	entry, err := c.service.Withdraw(ctx.Request.Context(), userID, eventID)
	if err != nil {
		if errors.Is(err, ErrNotEnrolled) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Not on the waitlist for this event"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to leave waitlist",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Removed from waitlist",
		"data":    entry,
	})
}

// Position handles GET /api/v1/waitlist/:eventId/position
func (c *Controller) Position(ctx *gin.Context) {
	userID, ok := requesterID(ctx)
	if !ok {
		return
	}

	eventID, err := uuid.Parse(ctx.Param("eventId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	info, err := c.service.Position(ctx.Request.Context(), userID, eventID)
	if err != nil {
		if errors.Is(err, ErrNotEnrolled) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Not on the waitlist for this event"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get waitlist position",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": info})
}
