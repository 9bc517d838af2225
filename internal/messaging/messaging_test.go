package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/dormdeals/internal/domain"
)

func TestHeaderCarrier(t *testing.T) {
	t.Run("round-trips a trace context through headers", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
		ctx := trace.ContextWithSpanContext(context.Background(), sc)

		var msg kafka.Message
		propagation.TraceContext{}.Inject(ctx, carrierFor(&msg))
		require.Len(t, msg.Headers, 1)
		assert.Equal(t, "traceparent", msg.Headers[0].Key)

		extracted := trace.SpanContextFromContext(propagation.TraceContext{}.Extract(context.Background(), carrierFor(&msg)))
		assert.Equal(t, traceID, extracted.TraceID())
		assert.Equal(t, spanID, extracted.SpanID())
	})

	t.Run("set overwrites an existing header", func(t *testing.T) {
		msg := kafka.Message{Headers: []kafka.Header{{Key: "a", Value: []byte("1")}}}
		c := carrierFor(&msg)
		c.Set("a", "2")
		c.Set(headerEventType, domain.EventStockLow)

		assert.Equal(t, "2", c.Get("a"))
		assert.Equal(t, []string{"a", headerEventType}, c.Keys())
		assert.Equal(t, "", c.Get("missing"))
		assert.Len(t, msg.Headers, 2)
	})
}

type recordingPublisher struct {
	topic   string
	mu      sync.Mutex
	keys    []string
	err     error
	release chan struct{}
}

func (r *recordingPublisher) Publish(ctx context.Context, event Event) error {
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, event.EventKey())
	return r.err
}

func (r *recordingPublisher) Topic() string {
	return r.topic
}

func (r *recordingPublisher) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

func TestEventPublisher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("keys order events by order id even after the request ends", func(t *testing.T) {
		orders := &recordingPublisher{topic: "order.placed"}
		p := &EventPublisher{orders: orders, stock: &recordingPublisher{}, logger: logger}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p.OrderPlaced(ctx, domain.OrderPlacedEvent{OrderID: "order-1"})
		p.Wait()
		assert.Equal(t, []string{"order-1"}, orders.Keys())
	})

	t.Run("publish failures are swallowed", func(t *testing.T) {
		stock := &recordingPublisher{topic: "product.stock_low", err: errors.New("broker unavailable")}
		p := &EventPublisher{orders: &recordingPublisher{}, stock: stock, logger: logger}

		assert.NotPanics(t, func() {
			p.StockLow(context.Background(), domain.StockLowEvent{ProductID: "p1"})
			p.Wait()
		})
		assert.Equal(t, []string{"p1"}, stock.Keys())
	})

	t.Run("a stalled broker does not hold up the caller", func(t *testing.T) {
		orders := &recordingPublisher{topic: "order.placed", release: make(chan struct{})}
		p := &EventPublisher{orders: orders, stock: &recordingPublisher{}, logger: logger}

		returned := make(chan struct{})
		go func() {
			p.OrderPlaced(context.Background(), domain.OrderPlacedEvent{OrderID: "order-2"})
			close(returned)
		}()

		select {
		case <-returned:
		case <-time.After(time.Second):
			t.Fatal("OrderPlaced blocked on the broker")
		}
		assert.Empty(t, orders.Keys())

		close(orders.release)
		p.Wait()
		assert.Equal(t, []string{"order-2"}, orders.Keys())
	})
}

func TestConsumerDeliver(t *testing.T) {
	newConsumer := func(attempts int) *Consumer {
		return &Consumer{
			cfg:     ConsumerConfig{Topic: domain.EventOrderPlaced, GroupID: "test", MaxAttempts: attempts},
			logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
			backoff: func(int) time.Duration { return 0 },
		}
	}
	msg := kafka.Message{Value: []byte(`{}`)}

	t.Run("transient failures are retried", func(t *testing.T) {
		calls := 0
		err := newConsumer(3).deliver(context.Background(), msg, func(context.Context, []byte) error {
			calls++
			if calls < 3 {
				return errors.New("mongo unavailable")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		calls := 0
		err := newConsumer(2).deliver(context.Background(), msg, func(context.Context, []byte) error {
			calls++
			return errors.New("mongo unavailable")
		})
		assert.EqualError(t, err, "mongo unavailable")
		assert.Equal(t, 2, calls)
	})

	t.Run("skipped messages are not retried", func(t *testing.T) {
		calls := 0
		err := newConsumer(5).deliver(context.Background(), msg, func(context.Context, []byte) error {
			calls++
			return fmt.Errorf("bad payload: %w", ErrSkip)
		})
		assert.ErrorIs(t, err, ErrSkip)
		assert.Equal(t, 1, calls)
	})
}
