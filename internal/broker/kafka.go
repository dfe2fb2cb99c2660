package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"upgrade-service/internal/util"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventTypeHeader names the message header holding the event type, so
// consumers can skip events they do not handle without decoding them.
const EventTypeHeader = "event_type"

type typedEvent interface {
	Type() string
}

// Producer writes domain events to one topic
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	return &Producer{writer: writer}
}

// PublishEvent publishes an event to Kafka
func (p *Producer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: eventBytes,
		Time:  time.Now(),
	}
	if typed, ok := event.(typedEvent); ok {
		msg.Headers = append(msg.Headers, kafka.Header{Key: EventTypeHeader, Value: []byte(typed.Type())})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	util.GetLogger().Debug("Published event",
		zap.String("topic", p.writer.Topic),
		zap.String("key", key),
		zap.String("type", fmt.Sprintf("%T", event)))
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// eventType returns the event type header of msg, or "" when absent.
func eventType(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == EventTypeHeader {
			return string(h.Value)
		}
	}
	return ""
}

// Consumer represents a Kafka consumer
type Consumer struct {
	reader *kafka.Reader
	retry  func() backoff.BackOff
}

// handlerRetryPolicy bounds how long one failing message holds up its partition.
func handlerRetryPolicy() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 30 * time.Second
	return policy
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return &Consumer{reader: reader, retry: handlerRetryPolicy}
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// MessageHandler is a function type for handling messages
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// StartConsuming consumes messages until ctx is cancelled. A failing handler
// is retried with exponential backoff; a message that still fails after the
// retry budget is logged and committed so it does not block the partition.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	logger := util.GetLogger()
	logger.Info("Starting Kafka consumer", zap.String("topic", c.reader.Config().Topic))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				logger.Info("Consumer context cancelled, stopping")
				return ctx.Err()
			}
			logger.Error("Error fetching message", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		if err := handleWithRetry(ctx, handler, msg, c.retry()); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("Giving up on message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			logger.Error("Error committing message", zap.Error(err))
		}
	}
}

func handleWithRetry(ctx context.Context, handler MessageHandler, msg kafka.Message, policy backoff.BackOff) error {
	return backoff.RetryNotify(
		func() error { return handler(ctx, msg) },
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			util.GetLogger().Warn("Error handling message, retrying",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
				zap.Duration("next_attempt_in", next))
		},
	)
}
