package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticketly/pkg/logger"

	"github.com/IBM/sarama"
)

// ConsumerConfig contains configuration for the work-queue consumer group
type ConsumerConfig struct {
	Brokers        []string
	GroupID        string
	AdmissionTopic string
	PromotionTopic string
	SessionTimeout time.Duration
	Heartbeat      time.Duration
	Workers        int
}

// DefaultConsumerConfig returns a default consumer configuration
func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:        []string{"localhost:9092"},
		GroupID:        "ticketly-workers",
		AdmissionTopic: "booking-admissions",
		PromotionTopic: "waitlist-promotions",
		SessionTimeout: 30 * time.Second,
		Heartbeat:      3 * time.Second,
		Workers:        3,
	}
}

// Consumer runs the worker pool draining the admission and promotion topics.
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	handler       *JobHandler
	log           *logger.Logger
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

func NewConsumer(config *ConsumerConfig, handler *JobHandler, log *logger.Logger) (*Consumer, error) {
	if log == nil {
		log = logger.GetDefault()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = config.SessionTimeout
	saramaConfig.Consumer.Group.Heartbeat.Interval = config.Heartbeat
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create work-queue consumer group: %w", err)
	}

	return &Consumer{
		consumerGroup: consumerGroup,
		config:        config,
		handler:       handler,
		log:           log,
	}, nil
}

// Start launches the consumer workers. Workers run until Stop is called or
// the parent context is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	topics := []string{c.config.AdmissionTopic, c.config.PromotionTopic}

	go c.drainErrors()

	workers := c.config.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go func(workerID int) {
			defer c.wg.Done()
			c.runWorker(ctx, workerID, topics)
		}(i)
	}

	c.log.Info("work-queue consumers started",
		"workers", workers,
		"topics", topics,
		"group_id", c.config.GroupID,
	)
}

func (c *Consumer) runWorker(ctx context.Context, workerID int, topics []string) {
	handler := &groupHandler{
		jobs:           c.handler,
		workerID:       workerID,
		admissionTopic: c.config.AdmissionTopic,
		promotionTopic: c.config.PromotionTopic,
		log:            c.log,
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := c.consumerGroup.Consume(ctx, topics, handler); err != nil {
				c.log.ErrorWithContext(ctx, "work-queue consume error", err, map[string]interface{}{
					"worker_id": workerID,
				})
				time.Sleep(time.Second)
			}
		}
	}
}

func (c *Consumer) drainErrors() {
	for err := range c.consumerGroup.Errors() {
		c.log.Error("work-queue consumer group error", "error", err.Error())
	}
}

// Stop shuts the worker pool down and closes the consumer group
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	if err := c.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close work-queue consumer group: %w", err)
	}
	return nil
}

type groupHandler struct {
	jobs           *JobHandler
	workerID       int
	admissionTopic string
	promotionTopic string
	log            *logger.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			if err := h.processMessage(session.Context(), message); err != nil {
				// Unmarked messages are redelivered; at-least-once
				h.log.ErrorWithContext(session.Context(), "failed to process job", err, map[string]interface{}{
					"worker_id": h.workerID,
					"topic":     message.Topic,
					"offset":    message.Offset,
				})
			} else {
				session.MarkMessage(message, "")
			}

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *groupHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	switch message.Topic {
	case h.admissionTopic:
		job, err := AdmissionJobFromJSON(message.Value)
		if err != nil {
			// Malformed payloads are dropped, not retried
			h.log.Error("dropping malformed admission job", "error", err.Error(), "offset", message.Offset)
			return nil
		}
		return h.jobs.HandleAdmission(ctx, job)

	case h.promotionTopic:
		job, err := PromotionJobFromJSON(message.Value)
		if err != nil {
			h.log.Error("dropping malformed promotion job", "error", err.Error(), "offset", message.Offset)
			return nil
		}
		return h.jobs.HandlePromotion(ctx, job)

	default:
		return nil
	}
}
