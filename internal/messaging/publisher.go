package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joao-fontenele/dormdeals/internal/domain"
)

const publishTimeout = 5 * time.Second

type publisher interface {
	Publish(ctx context.Context, event Event) error
	Topic() string
}

// EventPublisher hands fan-out events to the worker through Kafka. Writes run
// in the background so a slow or unreachable broker never holds up the
// request; a failed publish is logged and dropped.
type EventPublisher struct {
	orders publisher
	stock  publisher
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewEventPublisher(orders, stock *Producer, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{
		orders: orders,
		stock:  stock,
		logger: logger,
	}
}

func (p *EventPublisher) OrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) {
	p.publish(ctx, p.orders, event)
}

func (p *EventPublisher) StockLow(ctx context.Context, event domain.StockLowEvent) {
	p.publish(ctx, p.stock, event)
}

func (p *EventPublisher) publish(ctx context.Context, to publisher, event Event) {
	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := to.Publish(ctx, event); err != nil {
			p.logger.Error("failed to publish event", "error", err, "topic", to.Topic(),
				"event_type", event.EventType(), "key", event.EventKey())
			return
		}
		p.logger.Debug("event published", "topic", to.Topic(), "event_type", event.EventType())
	}()
}

// Wait blocks until every publish started so far has finished.
func (p *EventPublisher) Wait() {
	p.wg.Wait()
}
