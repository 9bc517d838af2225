package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var producerTracer = otel.Tracer("dormdeals/messaging/producer")

// Event is a message the storefront emits. The key picks the partition, so
// events about one entity stay ordered.
type Event interface {
	EventType() string
	EventKey() string
}

// Producer writes JSON-encoded events to a single topic.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

type ProducerOption func(*kafka.Writer)

// WithBatchTimeout bounds how long a write waits for a batch to fill.
func WithBatchTimeout(d time.Duration) ProducerOption {
	return func(w *kafka.Writer) {
		w.BatchTimeout = d
	}
}

func NewProducer(brokers []string, topic string, opts ...ProducerOption) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           20 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
	}
	for _, opt := range opts {
		opt(w)
	}
	return &Producer{writer: w, topic: topic}
}

func (p *Producer) Topic() string {
	return p.topic
}

func (p *Producer) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.EventType(), err)
	}

	msg := kafka.Message{
		Key:   []byte(event.EventKey()),
		Value: body,
		Time:  time.Now(),
	}
	headers := carrierFor(&msg)
	headers.Set(headerEventType, event.EventType())
	headers.Set(headerContentType, "application/json")

	ctx, span := producerTracer.Start(ctx, "publish "+p.topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("publish"),
			semconv.MessagingOperationTypePublish,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingKafkaMessageKey(event.EventKey()),
			semconv.MessagingMessageBodySize(len(body)),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, headers)

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("publish %s to %s: %w", event.EventType(), p.topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
