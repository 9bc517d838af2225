package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/dormdeals/internal/domain"
	"github.com/joao-fontenele/dormdeals/internal/messaging"
)

// Dispatcher performs the admin fan-out for each event kind.
type Dispatcher interface {
	OrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error
	StockLow(ctx context.Context, event domain.StockLowEvent) error
}

type NotificationHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewNotificationHandler(dispatcher Dispatcher, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (h *NotificationHandler) HandleOrderPlaced(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w: %w", messaging.ErrSkip, err)
	}
	if event.OrderID == "" {
		return fmt.Errorf("order placed event without order id: %w", messaging.ErrSkip)
	}

	h.logger.Info("processing order placed event", "order_id", event.OrderID, "customer_id", event.CustomerID)

	if err := h.dispatcher.OrderPlaced(ctx, event); err != nil {
		h.logger.Error("failed to notify admins", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("notify order placed: %w", err)
	}
	return nil
}

func (h *NotificationHandler) HandleStockLow(ctx context.Context, payload []byte) error {
	var event domain.StockLowEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal stock low event: %w: %w", messaging.ErrSkip, err)
	}
	if event.ProductID == "" {
		return fmt.Errorf("stock low event without product id: %w", messaging.ErrSkip)
	}

	h.logger.Info("processing stock low event", "product_id", event.ProductID, "stock", event.Stock)

	if err := h.dispatcher.StockLow(ctx, event); err != nil {
		h.logger.Error("failed to notify admins", "error", err, "product_id", event.ProductID)
		return fmt.Errorf("notify stock low: %w", err)
	}
	return nil
}
