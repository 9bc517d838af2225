package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/dormdeals/internal/domain"
	"github.com/joao-fontenele/dormdeals/internal/messaging"
)

type recordingDispatcher struct {
	orders []domain.OrderPlacedEvent
	stock  []domain.StockLowEvent
	err    error
}

func (d *recordingDispatcher) OrderPlaced(_ context.Context, e domain.OrderPlacedEvent) error {
	d.orders = append(d.orders, e)
	return d.err
}

func (d *recordingDispatcher) StockLow(_ context.Context, e domain.StockLowEvent) error {
	d.stock = append(d.stock, e)
	return d.err
}

func newTestHandler(err error) (*NotificationHandler, *recordingDispatcher) {
	d := &recordingDispatcher{err: err}
	return NewNotificationHandler(d, slog.New(slog.NewTextHandler(io.Discard, nil))), d
}

func TestNotificationHandler_HandleOrderPlaced(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes the event and fans out", func(t *testing.T) {
		h, d := newTestHandler(nil)

		err := h.HandleOrderPlaced(ctx, []byte(`{"order_id":"order-1","customer_id":"u1","buyer_name":"Asha","total_price":1000,"item_count":2}`))
		require.NoError(t, err)

		require.Len(t, d.orders, 1)
		assert.Equal(t, "Asha", d.orders[0].BuyerName)
		assert.Equal(t, "1000", d.orders[0].TotalPrice.String())
	})

	t.Run("malformed payloads are skipped", func(t *testing.T) {
		h, d := newTestHandler(nil)

		err := h.HandleOrderPlaced(ctx, []byte(`not json`))
		assert.ErrorIs(t, err, messaging.ErrSkip)

		err = h.HandleOrderPlaced(ctx, []byte(`{}`))
		assert.ErrorIs(t, err, messaging.ErrSkip)
		assert.Empty(t, d.orders)
	})

	t.Run("store failures are retried", func(t *testing.T) {
		h, _ := newTestHandler(errors.New("mongo is down"))

		err := h.HandleOrderPlaced(ctx, []byte(`{"order_id":"order-1"}`))
		require.Error(t, err)
		assert.NotErrorIs(t, err, messaging.ErrSkip)
	})
}

func TestNotificationHandler_HandleStockLow(t *testing.T) {
	h, d := newTestHandler(nil)

	err := h.HandleStockLow(context.Background(), []byte(`{"product_id":"p1","product_name":"Desk lamp","stock":2,"threshold":5}`))
	require.NoError(t, err)

	require.Len(t, d.stock, 1)
	assert.Equal(t, 2, d.stock[0].Stock)
}
