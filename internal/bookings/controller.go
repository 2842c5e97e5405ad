package bookings

import (
	"context"
	"errors"
	"net/http"

	"ticketly/internal/shared/config"
	"ticketly/internal/shared/metrics"
	"ticketly/internal/waitlist"
	"ticketly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdmissionEnqueuer hands a booking request to the work queue instead of
// processing it inline. Satisfied by the queue producer.
type AdmissionEnqueuer interface {
	EnqueueAdmission(ctx context.Context, userID, eventID uuid.UUID, quantity int) error
}

type Controller struct {
	service  Service
	enroller waitlist.Service
	enqueuer AdmissionEnqueuer
	metrics  metrics.Collector
	mode     config.AdmissionMode
}

func NewController(service Service, enroller waitlist.Service, enqueuer AdmissionEnqueuer, collector metrics.Collector, mode config.AdmissionMode) *Controller {
	if collector == nil {
		collector = metrics.Noop{}
	}
	return &Controller{
		service:  service,
		enroller: enroller,
		enqueuer: enqueuer,
		metrics:  collector,
		mode:     mode,
	}
}

func requesterID(ctx *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(ctx.GetHeader("X-User-ID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid X-User-ID header"})
		return uuid.Nil, false
	}
	return userID, true
}

// CreateBooking handles POST /api/v1/bookings
func (c *Controller) CreateBooking(ctx *gin.Context) {
	userID, ok := requesterID(ctx)
	if !ok {
		return
	}

	var req CreateBookingRequest
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

	// Queued mode defers the admission to the worker pool
	if c.mode == config.AdmissionQueued && c.enqueuer != nil {
		if err := c.enqueuer.EnqueueAdmission(ctx.Request.Context(), userID, eventID, req.Quantity); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Failed to queue booking request",
				"details": err.Error(),
			})
			return
		}
		ctx.JSON(http.StatusAccepted, gin.H{
			"message": "Booking request queued for processing",
		})
		return
	}

	result, err := c.service.Admit(ctx.Request.Context(), userID, eventID, req.Quantity)
	if err != nil {
		if errors.Is(err, ErrDuplicateReference) {
			ctx.JSON(http.StatusConflict, gin.H{"error": "Duplicate booking reference"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to process booking",
			"details": err.Error(),
		})
		return
	}

	c.respondAdmission(ctx, userID, eventID, req.Quantity, result)
}

// respondAdmission maps an admission result onto HTTP, diverting capacity
// rejections to waitlist enrollment.
func (c *Controller) respondAdmission(ctx *gin.Context, userID, eventID uuid.UUID, quantity int, result *AdmissionResult) {
	switch result.Outcome {
	case OutcomeConfirmed:
		// A notified waitlist user converting their spot closes their entry.
		// Best effort: most users were never waitlisted.
		if c.enroller != nil {
			if err := c.enroller.MarkConverted(ctx.Request.Context(), userID, eventID); err != nil && !errors.Is(err, waitlist.ErrNotEnrolled) {
				logger.GetDefault().WarnContext(ctx.Request.Context(), "failed to mark waitlist entry converted",
					"user_id", userID.String(),
					"event_id", eventID.String(),
					"error", err.Error(),
				)
			}
		}
		ctx.JSON(http.StatusCreated, gin.H{
			"message": "Booking confirmed successfully",
			"data":    result,
		})

	case OutcomeBusy:
		ctx.JSON(http.StatusTooManyRequests, gin.H{
			"error": "Event is busy, please retry",
		})

	case OutcomeRejected:
		if result.Reason == ReasonInsufficientCapacity && c.enroller != nil {
			entry, err := c.enroller.Enroll(ctx.Request.Context(), userID, eventID, quantity)
			if err == nil {
				c.metrics.IncAdmission(metrics.OutcomeWaitlisted)
				ctx.JSON(http.StatusOK, gin.H{
					"message": "Event is full, you have been added to the waitlist",
					"data": &AdmissionResult{
						Outcome: OutcomeWaitlisted,
					},
					"waitlist": entry,
				})
				return
			}
			if errors.Is(err, waitlist.ErrAlreadyEnrolled) {
				ctx.JSON(http.StatusConflict, gin.H{
					"error": "Event is full and you are already on the waitlist",
				})
				return
			}
		}
		status := http.StatusConflict
		if result.Reason == ReasonNotAvailable || result.Reason == ReasonInvalidQuantity {
			status = http.StatusUnprocessableEntity
		}
		ctx.JSON(status, gin.H{
			"error": "Booking rejected",
			"data":  result,
		})

	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Unknown admission outcome"})
	}
}

// GetBooking handles GET /api/v1/bookings/:id. The path segment is either the
// booking UUID or its human-readable reference (EVT-...).
func (c *Controller) GetBooking(ctx *gin.Context) {
	userID, ok := requesterID(ctx)
	if !ok {
		return
	}

	var booking *Booking
	var err error
	if bookingID, parseErr := uuid.Parse(ctx.Param("id")); parseErr == nil {
		booking, err = c.service.GetBooking(ctx.Request.Context(), bookingID, userID)
	} else {
		booking, err = c.service.GetBookingByReference(ctx.Request.Context(), ctx.Param("id"), userID)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get booking",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": booking})
}

// ListBookings handles GET /api/v1/bookings
func (c *Controller) ListBookings(ctx *gin.Context) {
	userID, ok := requesterID(ctx)
	if !ok {
		return
	}

	var query BookingListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	bookings, totalCount, err := c.service.GetUserBookings(ctx.Request.Context(), userID, query)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list bookings",
			"details": err.Error(),
		})
		return
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	ctx.JSON(http.StatusOK, gin.H{
		"data": bookings,
		"pagination": gin.H{
			"current_page":   query.Page,
			"total_pages":    CalculateTotalPages(totalCount, query.Limit),
			"total_bookings": totalCount,
		},
	})
}
