package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderPlacedTemplate(t *testing.T) {
	order := newTestOrder(t, true)

	t.Run("names the buyer and the short order id", func(t *testing.T) {
		tmpl := OrderPlacedTemplate(NewOrderPlacedEvent(order, "Asha"))

		assert.Equal(t, "New Order", tmpl.Title)
		assert.Equal(t, "Order #123456 placed by Asha", tmpl.Message)
		assert.Equal(t, NotificationOrder, tmpl.Type)
		assert.Equal(t, order.ID, tmpl.Data["orderId"])
		assert.Equal(t, "1000", tmpl.Data["totalPrice"])
		assert.Equal(t, 2, tmpl.Data["itemCount"])
	})

	t.Run("falls back when the buyer is unknown", func(t *testing.T) {
		tmpl := OrderPlacedTemplate(NewOrderPlacedEvent(order, ""))
		assert.Equal(t, "Order #123456 placed by a customer", tmpl.Message)
	})
}

func TestNotificationTemplate_For(t *testing.T) {
	tmpl := StockLowTemplate(StockLowEvent{ProductID: "p1", ProductName: "Desk lamp", Stock: 2, Threshold: 5})

	first := tmpl.For("admin-1", testNow)
	second := tmpl.For("admin-2", testNow)
	first.Data["stock"] = 99

	assert.Equal(t, "Desk lamp is running low (2 left)", second.Message)
	assert.Equal(t, "admin-2", second.RecipientID)
	assert.False(t, second.IsRead)
	assert.Equal(t, 2, second.Data["stock"])
	assert.Equal(t, 2, tmpl.Data["stock"])
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", ShortID("abc"))
	assert.Equal(t, "345678", ShortID("0012345678"))
}
