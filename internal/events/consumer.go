package events

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// ConsumerConfig contains configuration for the event consumer group
type ConsumerConfig struct {
	Brokers          []string
	GroupID          string
	TopicPrefix      string
	SessionTimeoutMs int
	HeartbeatMs      int
	RetryBackoffMs   int
	OffsetOldest     bool
}

// DefaultConsumerConfig returns a default consumer configuration
func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:          []string{"localhost:9092"},
		GroupID:          "sportzone-booking-workers",
		SessionTimeoutMs: 30000,
		HeartbeatMs:      3000,
		RetryBackoffMs:   100,
		OffsetOldest:     false,
	}
}

// Consumer runs a sarama consumer group over every internal topic and
// dispatches decoded events to registered handlers.
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	handlers      map[Type]Handler
	mu            sync.RWMutex
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewConsumer creates a new event consumer group
func NewConsumer(config *ConsumerConfig) (*Consumer, error) {
	if config == nil {
		config = DefaultConsumerConfig()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.Return.Errors = true
	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		consumerGroup: consumerGroup,
		config:        config,
		handlers:      make(map[Type]Handler),
	}, nil
}

// On registers the handler for one event type. Must be called before Start.
func (c *Consumer) On(t Type, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[t] = handler
}

// Start begins consuming in the background until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	topics := make([]string, 0, len(AllTypes()))
	for _, t := range AllTypes() {
		topics = append(topics, c.topicFor(t))
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if err := c.consumerGroup.Consume(runCtx, topics, c); err != nil {
				log.Printf("event consumer error: %v", err)
			}
			if runCtx.Err() != nil {
				return
			}
			// Rebalance happened; loop re-joins the group.
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				log.Printf("event consumer group error: %v", err)
			case <-runCtx.Done():
				return
			}
		}
	}()

	log.Printf("📥 Event consumers started for topics: %v", topics)
	return nil
}

// Stop shuts down the consumer group and waits for workers to exit.
func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.consumerGroup.Close()
	c.wg.Wait()
	return err
}

// Setup implements sarama.ConsumerGroupHandler
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error { return nil }

// Cleanup implements sarama.ConsumerGroupHandler
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim processes messages from one partition claim.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			c.handleMessage(session.Context(), message)
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) {
	evt, err := FromJSON(message.Value)
	if err != nil {
		log.Printf("dropping undecodable event on %s at offset %d: %v", message.Topic, message.Offset, err)
		return
	}

	c.mu.RLock()
	handler, ok := c.handlers[evt.Type]
	c.mu.RUnlock()
	if !ok {
		return
	}

	// Handlers are idempotent; an error here is logged and the offset is
	// still committed, because the reconciler's fallback safety check
	// re-drives any booking the event-driven path missed.
	if err := handler(ctx, evt); err != nil {
		log.Printf("handler for %s event %s failed: %v", evt.Type, evt.ID, err)
	}
}

func (c *Consumer) topicFor(t Type) string {
	if c.config.TopicPrefix == "" {
		return string(t)
	}
	return c.config.TopicPrefix + "." + string(t)
}
