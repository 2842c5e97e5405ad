// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"ticketly/internal/bookings"
	"ticketly/internal/cancellation"
	"ticketly/internal/events"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"
	"ticketly/internal/waitlist"

	"github.com/gin-gonic/gin"
)

// Controllers bundles the HTTP controllers the router exposes
type Controllers struct {
	Events       *events.Controller
	Bookings     *bookings.Controller
	Cancellation *cancellation.Controller
	Waitlist     *waitlist.Controller
}

// Router holds all route dependencies
type Router struct {
	config      *config.Config
	db          *database.DB
	controllers Controllers
	metrics     http.Handler
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, controllers Controllers, metricsHandler http.Handler) *Router {
	return &Router{
		config:      cfg,
		db:          db,
		controllers: controllers,
		metrics:     metricsHandler,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	if r.metrics != nil {
		engine.GET("/metrics", gin.WrapH(r.metrics))
	}

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupEventRoutes(api)
		r.setupBookingRoutes(api)
		r.setupWaitlistRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "ticketly",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "ticketly",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}

func (r *Router) setupEventRoutes(api *gin.RouterGroup) {
	ctrl := r.controllers.Events
	eventRoutes := api.Group("/events")
	{
		eventRoutes.POST("", ctrl.CreateEvent)
		eventRoutes.GET("", ctrl.ListEvents)
		eventRoutes.GET("/:id", ctrl.GetEvent)
		eventRoutes.PATCH("/:id/status", ctrl.UpdateStatus)
		eventRoutes.PATCH("/:id/capacity", ctrl.IncreaseCapacity)
	}
}

func (r *Router) setupBookingRoutes(api *gin.RouterGroup) {
	ctrl := r.controllers.Bookings
	bookingRoutes := api.Group("/bookings")
	{
		bookingRoutes.POST("", ctrl.CreateBooking)
		bookingRoutes.GET("", ctrl.ListBookings)
		bookingRoutes.GET("/:id", ctrl.GetBooking)
		bookingRoutes.DELETE("/:id", r.controllers.Cancellation.CancelBooking)
	}
}

func (r *Router) setupWaitlistRoutes(api *gin.RouterGroup) {
	ctrl := r.controllers.Waitlist
	waitlistRoutes := api.Group("/waitlist")
	{
		waitlistRoutes.POST("", ctrl.Join)
		waitlistRoutes.DELETE("/:eventId", ctrl.Leave)
		waitlistRoutes.GET("/:eventId/position", ctrl.Position)
	}
}
