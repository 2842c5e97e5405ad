package cancellation

import (
	"errors"
	"net/http"

	"ticketly/internal/bookings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CancelBooking handles DELETE /api/v1/bookings/:id
func (c *Controller) CancelBooking(ctx *gin.Context) {
	userID, err := uuid.Parse(ctx.GetHeader("X-User-ID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid X-User-ID header"})
		return
	}

	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req bookings.CancelBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	booking, err := c.service.Cancel(ctx.Request.Context(), bookingID, userID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		case errors.Is(err, bookings.ErrAlreadyCancelled):
			ctx.JSON(http.StatusConflict, gin.H{"error": "Booking is already cancelled"})
		case errors.Is(err, bookings.ErrTooCloseToStart):
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Cancellation window has closed for this event"})
		case errors.Is(err, ErrCancellationInProgress):
			ctx.JSON(http.StatusTooManyRequests, gin.H{"error": "Cancellation already in progress, please retry"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to cancel booking",
				"details": err.Error(),
			})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Booking cancelled successfully",
		"data":    booking,
	})
}
