package notifications

import (
	"context"
	"log/slog"
	"sync"

	"github.com/joao-fontenele/dormdeals/internal/domain"
)

type Dispatcher interface {
	OrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error
	StockLow(ctx context.Context, event domain.StockLowEvent) error
}

// AsyncNotifier runs the fan-out in the background of the request that
// triggered it. Failures are logged and never reach the caller.
type AsyncNotifier struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	wg         sync.WaitGroup
}

func NewAsyncNotifier(dispatcher Dispatcher, logger *slog.Logger) *AsyncNotifier {
	return &AsyncNotifier{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (n *AsyncNotifier) OrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) {
	n.run(ctx, func(ctx context.Context) error {
		return n.dispatcher.OrderPlaced(ctx, event)
	}, "order_id", event.OrderID)
}

func (n *AsyncNotifier) StockLow(ctx context.Context, event domain.StockLowEvent) {
	n.run(ctx, func(ctx context.Context) error {
		return n.dispatcher.StockLow(ctx, event)
	}, "product_id", event.ProductID)
}

func (n *AsyncNotifier) run(ctx context.Context, fn func(context.Context) error, attrs ...any) {
	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := fn(ctx); err != nil {
			n.logger.Error("notification fan-out failed", append([]any{"error", err}, attrs...)...)
		}
	}()
}

// Wait blocks until every fan-out started so far has finished.
func (n *AsyncNotifier) Wait() {
	n.wg.Wait()
}
