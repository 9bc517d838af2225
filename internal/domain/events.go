package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderPlacedEvent struct {
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	BuyerName  string          `json:"buyer_name"`
	TotalPrice decimal.Decimal `json:"total_price"`
	ItemCount  int             `json:"item_count"`
	Timestamp  time.Time       `json:"timestamp"`
}

func NewOrderPlacedEvent(order *Order, buyerName string) OrderPlacedEvent {
	return OrderPlacedEvent{
		OrderID:    order.ID,
		CustomerID: order.UserID,
		BuyerName:  buyerName,
		TotalPrice: order.TotalPrice,
		ItemCount:  len(order.Items),
		Timestamp:  order.CreatedAt,
	}
}

type StockLowEvent struct {
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Stock       int       `json:"stock"`
	Threshold   int       `json:"threshold"`
	Timestamp   time.Time `json:"timestamp"`
}

// Event types double as the default Kafka topic names.
const (
	EventOrderPlaced = "order.placed"
	EventStockLow    = "product.stock_low"
)

func (e OrderPlacedEvent) EventType() string { return EventOrderPlaced }
func (e OrderPlacedEvent) EventKey() string  { return e.OrderID }

func (e StockLowEvent) EventType() string { return EventStockLow }
func (e StockLowEvent) EventKey() string  { return e.ProductID }
