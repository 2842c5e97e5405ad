package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketly/api/routes"
	"ticketly/internal/bookings"
	"ticketly/internal/cancellation"
	"ticketly/internal/events"
	"ticketly/internal/locks"
	"ticketly/internal/notifications"
	"ticketly/internal/queue"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"
	"ticketly/internal/shared/metrics"
	"ticketly/internal/shared/middleware"
	"ticketly/internal/waitlist"
	"ticketly/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	appLogger := logger.GetDefault()

	if err := godotenv.Load(); err != nil {
		appLogger.Info("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)
	events.RegisterValidators()

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect to databases", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Advisory lock layer; scripts are reloaded on first use if preload fails
	mutex := locks.NewMutex(db.GetRedisClient())
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := mutex.PreloadScripts(ctx); err != nil {
			appLogger.Warn("failed to preload Redis Lua scripts", slog.Any("error", err))
		}
		cancel()
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewPrometheusCollector(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	// Notification intents go to Kafka when the queue is up, the log otherwise
	var dispatcher notifications.Dispatcher
	if cfg.Kafka.Enabled {
		dispatcherConfig := notifications.DefaultKafkaDispatcherConfig()
		dispatcherConfig.Brokers = cfg.Kafka.Brokers
		dispatcherConfig.Topic = cfg.Kafka.NotificationTopic
		kafkaDispatcher, err := notifications.NewKafkaDispatcher(dispatcherConfig, appLogger)
		if err != nil {
			appLogger.Error("failed to create notification dispatcher", slog.Any("error", err))
			os.Exit(1)
		}
		defer kafkaDispatcher.Close()
		dispatcher = kafkaDispatcher
	} else {
		dispatcher = notifications.NewLogDispatcher(appLogger)
	}

	eventService := events.NewService(events.NewRepository(db.GetPostgreSQL()))

	bookingService := bookings.NewService(
		bookings.NewRepository(db.GetPostgreSQL()),
		mutex,
		collector,
		appLogger,
		bookings.Config{
			MaxQuantity:       cfg.Booking.MaxQuantity,
			CancelCutoff:      cfg.Booking.CancelCutoff,
			LockTTL:           cfg.Lock.TTL,
			LockRetryAttempts: cfg.Lock.RetryAttempts,
			LockRetryBackoff:  cfg.Lock.RetryBackoff,
		},
	)

	waitlistService := waitlist.NewService(
		waitlist.NewRepository(db.GetPostgreSQL()),
		dispatcher,
		collector,
		appLogger,
		waitlist.Config{
			MaxQuantity:  cfg.Booking.MaxQuantity,
			NotifyWindow: cfg.Booking.NotifyWindow,
		},
	)

	// Freed capacity reaches the waitlist through the queue when it is
	// enabled, inline otherwise.
	var producer *queue.Producer
	var promoter cancellation.PromotionDispatcher
	if cfg.Kafka.Enabled {
		producer, err = queue.NewProducer(&queue.ProducerConfig{
			Brokers:        cfg.Kafka.Brokers,
			AdmissionTopic: cfg.Kafka.AdmissionTopic,
			PromotionTopic: cfg.Kafka.PromotionTopic,
			RetryMax:       3,
			Timeout:        10 * time.Second,
		}, appLogger)
		if err != nil {
			appLogger.Error("failed to create work-queue producer", slog.Any("error", err))
			os.Exit(1)
		}
		defer producer.Close()
		promoter = producer
	} else {
		promoter = cancellation.NewInlinePromoter(waitlistService)
	}

	cancellationService := cancellation.NewService(
		bookingService,
		promoter,
		mutex,
		appLogger,
		cancellation.Config{
			LockTTL:           cfg.Lock.TTL,
			LockRetryAttempts: cfg.Lock.RetryAttempts,
			LockRetryBackoff:  cfg.Lock.RetryBackoff,
		},
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	if cfg.Kafka.Enabled {
		consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
			Brokers:        cfg.Kafka.Brokers,
			GroupID:        cfg.Kafka.GroupID,
			AdmissionTopic: cfg.Kafka.AdmissionTopic,
			PromotionTopic: cfg.Kafka.PromotionTopic,
			SessionTimeout: 30 * time.Second,
			Heartbeat:      3 * time.Second,
			Workers:        cfg.Kafka.ConsumerWorkers,
		}, queue.NewJobHandler(bookingService, waitlistService, appLogger), appLogger)
		if err != nil {
			appLogger.Error("failed to create work-queue consumer", slog.Any("error", err))
			os.Exit(1)
		}
		consumer.Start(rootCtx)
		defer func() {
			if err := consumer.Stop(); err != nil {
				appLogger.Error("error stopping work-queue consumer", slog.Any("error", err))
			}
		}()
	}

	expiryJob := waitlist.NewExpiryJob(waitlistService, cfg.Booking.ExpiryInterval, appLogger)
	expiryJob.Start(rootCtx)
	defer expiryJob.Stop()

	var enqueuer bookings.AdmissionEnqueuer
	if producer != nil {
		enqueuer = producer
	}

	controllers := routes.Controllers{
		Events:       events.NewController(eventService),
		Bookings:     bookings.NewController(bookingService, waitlistService, enqueuer, collector, cfg.Booking.Mode),
		Cancellation: cancellation.NewController(cancellationService),
		Waitlist:     waitlist.NewController(waitlistService),
	}

	engine := gin.New()
	engine.Use(middleware.RequestLogger(appLogger), gin.Recovery(), middleware.CORS())
	routes.NewRouter(cfg, db, controllers, metricsHandler).SetupRoutes(engine)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("admission_mode", string(cfg.Booking.Mode)),
			slog.Bool("work_queue", cfg.Kafka.Enabled),
			slog.String("version", cfg.APIVersion),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("server exited gracefully")
}
