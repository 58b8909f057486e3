package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// ProducerConfig contains configuration for the Kafka event producer
type ProducerConfig struct {
	Brokers         []string
	RetryMax        int
	TimeoutMs       int
	RequiredAcks    sarama.RequiredAcks
	CompressionType sarama.CompressionCodec
	TopicPrefix     string
}

// DefaultProducerConfig returns a default producer configuration
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Brokers:         []string{"localhost:9092"},
		RetryMax:        3,
		TimeoutMs:       10000,
		RequiredAcks:    sarama.WaitForAll, // Wait for all in-sync replicas
		CompressionType: sarama.CompressionSnappy,
	}
}

// KafkaPublisher publishes internal events to per-type Kafka topics.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	config   *ProducerConfig
}

// NewKafkaPublisher creates a new Kafka event publisher
func NewKafkaPublisher(config *ProducerConfig) (*KafkaPublisher, error) {
	if config == nil {
		config = DefaultProducerConfig()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond

	// Idempotent producer: duplicates from broker retries collapse.
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	// Hash partitioner keeps one payment's events on one partition.
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaPublisher{producer: producer, config: config}, nil
}

// Publish sends one event to the topic named after its type. The send is
// synchronous: when Publish returns nil the broker has acknowledged the
// write with the configured ack level.
func (p *KafkaPublisher) Publish(ctx context.Context, evt Event) error {
	if evt.ID == uuid.Nil {
		evt.ID = uuid.New()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}

	payload, err := evt.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topicFor(evt.Type),
		Key:   sarama.StringEncoder(evt.PartitionKey()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_id"), Value: []byte(evt.ID.String())},
			{Key: []byte("event_type"), Value: []byte(evt.Type)},
			{Key: []byte("occurred_at"), Value: []byte(evt.OccurredAt.Format(time.RFC3339))},
		},
		Timestamp: evt.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", evt.Type, err)
	}

	log.Printf("📤 Event published - Topic: %s, Partition: %d, Offset: %d", message.Topic, partition, offset)
	return nil
}

// Close closes the Kafka producer
func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}

func (p *KafkaPublisher) topicFor(t Type) string {
	if p.config.TopicPrefix == "" {
		return string(t)
	}
	return p.config.TopicPrefix + "." + string(t)
}

// NoopPublisher drops events; used when the broker is unavailable so the
// reconciler's fallback direct-write path carries the flow alone.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, evt Event) error {
	log.Printf("event publisher disabled, dropping %s event for %s", evt.Type, evt.PartitionKey())
	return nil
}
