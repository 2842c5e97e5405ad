package notifications

import (
	"context"
	"fmt"
	"time"

	"ticketly/pkg/logger"

	"github.com/IBM/sarama"
)

// KafkaDispatcherConfig contains configuration for the Kafka intent dispatcher
type KafkaDispatcherConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	Timeout          time.Duration
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
}

// DefaultKafkaDispatcherConfig returns a default dispatcher configuration
func DefaultKafkaDispatcherConfig() *KafkaDispatcherConfig {
	return &KafkaDispatcherConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "notifications",
		RetryMax:         3,
		Timeout:          10 * time.Second,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
	}
}

// KafkaDispatcher publishes notification intents to Kafka for a downstream
// delivery service to consume.
type KafkaDispatcher struct {
	producer sarama.SyncProducer
	config   *KafkaDispatcherConfig
	log      *logger.Logger
}

// NewKafkaDispatcher creates a new Kafka intent dispatcher
func NewKafkaDispatcher(config *KafkaDispatcherConfig, log *logger.Logger) (*KafkaDispatcher, error) {
	if log == nil {
		log = logger.GetDefault()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = config.Timeout
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash partitioner keeps one event's intents on one partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaDispatcher{
		producer: producer,
		config:   config,
		log:      log,
	}, nil
}

// Dispatch publishes a single intent to the notification topic
func (d *KafkaDispatcher) Dispatch(ctx context.Context, intent *Intent) error {
	messageBytes, err := intent.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     d.config.Topic,
		Key:       sarama.StringEncoder(intent.PartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   d.createHeaders(intent),
		Timestamp: intent.CreatedAt,
	}

	partition, offset, err := d.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send intent to Kafka: %w", err)
	}

	d.log.Info("notification intent published",
		"topic", d.config.Topic,
		"partition", partition,
		"offset", offset,
		"type", string(intent.Type),
		"user_id", intent.UserID.String(),
	)
	return nil
}

func (d *KafkaDispatcher) createHeaders(intent *Intent) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("intent_id"), Value: []byte(intent.ID.String())},
		{Key: []byte("intent_type"), Value: []byte(intent.Type)},
		{Key: []byte("user_id"), Value: []byte(intent.UserID.String())},
		{Key: []byte("event_id"), Value: []byte(intent.EventID.String())},
		{Key: []byte("created_at"), Value: []byte(intent.CreatedAt.Format(time.RFC3339))},
	}
	if intent.ExpiresAt != nil {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("expires_at"),
			Value: []byte(intent.ExpiresAt.Format(time.RFC3339)),
		})
	}
	return headers
}

// Close closes the Kafka producer
func (d *KafkaDispatcher) Close() error {
	if d.producer != nil {
		if err := d.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}
