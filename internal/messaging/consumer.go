package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("dormdeals/messaging/consumer")

// HandlerFunc processes one event body.
type HandlerFunc func(ctx context.Context, body []byte) error

// ErrSkip marks a message that can never be processed. The consumer logs it,
// commits it and moves on instead of stopping.
var ErrSkip = errors.New("skip message")

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// StartOffset applies when the group has no committed offset yet.
	// Defaults to kafka.FirstOffset.
	StartOffset int64
	// MaxAttempts is how many times a failing message is handled before
	// Consume gives up. Values below 1 mean a single attempt.
	MaxAttempts  int
	RetryBackoff time.Duration
}

type Consumer struct {
	reader  *kafka.Reader
	cfg     ConsumerConfig
	logger  *slog.Logger
	backoff func(attempt int) time.Duration
}

func NewConsumer(cfg ConsumerConfig, logger *slog.Logger) *Consumer {
	if cfg.StartOffset == 0 {
		cfg.StartOffset = kafka.FirstOffset
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       cfg.Topic,
			GroupID:     cfg.GroupID,
			StartOffset: cfg.StartOffset,
		}),
		cfg:    cfg,
		logger: logger.With("topic", cfg.Topic),
		backoff: func(attempt int) time.Duration {
			return cfg.RetryBackoff * time.Duration(attempt)
		},
	}
}

func (c *Consumer) Topic() string {
	return c.cfg.Topic
}

// Consume blocks until ctx is done or a message keeps failing after every
// attempt. Messages are committed once handled or skipped.
func (c *Consumer) Consume(ctx context.Context, handler HandlerFunc) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if err := c.deliver(ctx, msg, handler); err != nil {
			if !errors.Is(err, ErrSkip) {
				return fmt.Errorf("%s offset %d: %w", c.cfg.Topic, msg.Offset, err)
			}
			c.logger.Error("skipping message", "error", err, "offset", msg.Offset, "partition", msg.Partition)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit %s offset %d: %w", c.cfg.Topic, msg.Offset, err)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, msg kafka.Message, handler HandlerFunc) error {
	var err error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		err = c.handle(ctx, msg, handler, attempt)
		if err == nil || errors.Is(err, ErrSkip) || attempt == c.cfg.MaxAttempts {
			return err
		}

		c.logger.Warn("retrying message", "error", err, "offset", msg.Offset, "attempt", attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
	}
	return err
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handler HandlerFunc, attempt int) error {
	headers := carrierFor(&msg)
	parent := otel.GetTextMapPropagator().Extract(ctx, headers)

	spanCtx, span := consumerTracer.Start(parent, "process "+c.cfg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(c.cfg.Topic),
			semconv.MessagingKafkaConsumerGroup(c.cfg.GroupID),
			semconv.MessagingKafkaMessageOffset(int(msg.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(msg.Partition)),
			semconv.MessagingKafkaMessageKey(string(msg.Key)),
			attribute.String("messaging.event.type", headers.Get(headerEventType)),
			attribute.Int("messaging.delivery.attempt", attempt),
		),
	)
	defer span.End()

	if err := handler(spanCtx, msg.Value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
