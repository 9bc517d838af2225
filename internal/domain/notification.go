package domain

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationOrder  NotificationType = "order"
	NotificationStock  NotificationType = "stock"
	NotificationSystem NotificationType = "system"
	NotificationUser   NotificationType = "user"
)

type Notification struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Type        NotificationType `json:"type"`
	RecipientID string           `json:"recipient"`
	IsRead      bool             `json:"isRead"`
	Data        map[string]any   `json:"data,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// NotificationTemplate is one event rendered once and copied to every admin.
type NotificationTemplate struct {
	Title   string
	Message string
	Type    NotificationType
	Data    map[string]any
}

func (t NotificationTemplate) For(recipientID string, now time.Time) Notification {
	data := make(map[string]any, len(t.Data))
	for k, v := range t.Data {
		data[k] = v
	}
	return Notification{
		Title:       t.Title,
		Message:     t.Message,
		Type:        t.Type,
		RecipientID: recipientID,
		Data:        data,
		CreatedAt:   now,
	}
}

// ShortID is the trailing part of an identifier shown to humans.
func ShortID(id string) string {
	const n = 6
	if len(id) <= n {
		return id
	}
	return id[len(id)-n:]
}

func OrderPlacedTemplate(e OrderPlacedEvent) NotificationTemplate {
	buyer := e.BuyerName
	if buyer == "" {
		buyer = "a customer"
	}
	return NotificationTemplate{
		Title:   "New Order",
		Message: fmt.Sprintf("Order #%s placed by %s", ShortID(e.OrderID), buyer),
		Type:    NotificationOrder,
		Data: map[string]any{
			"orderId":    e.OrderID,
			"totalPrice": e.TotalPrice.String(),
			"itemCount":  e.ItemCount,
		},
	}
}

func StockLowTemplate(e StockLowEvent) NotificationTemplate {
	return NotificationTemplate{
		Title:   "Low Stock Alert",
		Message: fmt.Sprintf("%s is running low (%d left)", e.ProductName, e.Stock),
		Type:    NotificationStock,
		Data: map[string]any{
			"productId": e.ProductID,
			"stock":     e.Stock,
		},
	}
}
