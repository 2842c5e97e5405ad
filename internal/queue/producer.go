package queue

import (
	"context"
	"fmt"
	"time"

	"ticketly/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// ProducerConfig contains configuration for the work-queue producer
type ProducerConfig struct {
	Brokers        []string
	AdmissionTopic string
	PromotionTopic string
	RetryMax       int
	Timeout        time.Duration
}

// DefaultProducerConfig returns a default producer configuration
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Brokers:        []string{"localhost:9092"},
		AdmissionTopic: "booking-admissions",
		PromotionTopic: "waitlist-promotions",
		RetryMax:       3,
		Timeout:        10 * time.Second,
	}
}

// Producer publishes admission and promotion jobs. Both topics use a hash
// partitioner keyed by event ID, so each event's jobs land on one partition
// and are consumed serially.
type Producer struct {
	producer sarama.SyncProducer
	config   *ProducerConfig
	log      *logger.Logger
}

func NewProducer(config *ProducerConfig, log *logger.Logger) (*Producer, error) {
	if log == nil {
		log = logger.GetDefault()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = config.Timeout
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create work-queue producer: %w", err)
	}

	return &Producer{
		producer: producer,
		config:   config,
		log:      log,
	}, nil
}

// EnqueueAdmission publishes a deferred booking request
func (p *Producer) EnqueueAdmission(ctx context.Context, userID, eventID uuid.UUID, quantity int) error {
	job := &AdmissionJob{
		JobID:      uuid.New(),
		UserID:     userID,
		EventID:    eventID,
		Quantity:   quantity,
		EnqueuedAt: time.Now(),
	}

	messageBytes, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal admission job: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     p.config.AdmissionTopic,
		Key:       sarama.StringEncoder(eventID.String()),
		Value:     sarama.ByteEncoder(messageBytes),
		Timestamp: job.EnqueuedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue admission job: %w", err)
	}

	p.log.Info("admission job enqueued",
		"job_id", job.JobID.String(),
		"event_id", eventID.String(),
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// DispatchPromotion publishes a promotion scan request for an event
func (p *Producer) DispatchPromotion(ctx context.Context, eventID uuid.UUID, freedQuantity int) error {
	job := &PromotionJob{
		JobID:         uuid.New(),
		EventID:       eventID,
		FreedQuantity: freedQuantity,
		EnqueuedAt:    time.Now(),
	}

	messageBytes, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal promotion job: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     p.config.PromotionTopic,
		Key:       sarama.StringEncoder(eventID.String()),
		Value:     sarama.ByteEncoder(messageBytes),
		Timestamp: job.EnqueuedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue promotion job: %w", err)
	}

	p.log.Info("promotion job enqueued",
		"job_id", job.JobID.String(),
		"event_id", eventID.String(),
		"freed_quantity", freedQuantity,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close closes the underlying Kafka producer
func (p *Producer) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close work-queue producer: %w", err)
		}
	}
	return nil
}
