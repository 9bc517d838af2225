package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/joao-fontenele/dormdeals/internal/domain"
	"github.com/joao-fontenele/dormdeals/internal/telemetry"
)

type memoryRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	seq    int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: map[string]domain.Order{}}
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

func (m *memoryRepo) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	order.ID = fmt.Sprintf("order-%06d", m.seq)
	for i := range order.Items {
		order.Items[i].ID = fmt.Sprintf("%s-item-%d", order.ID, i+1)
	}
	m.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.NotFound("Order not found")
	}
	o = cloneOrder(o)
	return &o, nil
}

func (m *memoryRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

func (m *memoryRepo) ListAll(_ context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, cloneOrder(o))
	}
	return out, nil
}

func (m *memoryRepo) Update(_ context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[id]
	if !ok {
		return nil, domain.NotFound("Order not found")
	}
	o := cloneOrder(stored)
	if err := fn(&o); err != nil {
		return nil, err
	}
	m.orders[id] = cloneOrder(o)
	return &o, nil
}

type recordingNotifier struct {
	events []domain.OrderPlacedEvent
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, e domain.OrderPlacedEvent) {
	n.events = append(n.events, e)
}

type fakeCarts struct {
	cleared []string
	err     error
}

func (c *fakeCarts) ClearCart(_ context.Context, userID string) error {
	c.cleared = append(c.cleared, userID)
	return c.err
}

type fixture struct {
	svc      *Service
	repo     *memoryRepo
	notifier *recordingNotifier
	carts    *fakeCarts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	counters, err := telemetry.NewCounters(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	f := &fixture{
		repo:     newMemoryRepo(),
		notifier: &recordingNotifier{},
		carts:    &fakeCarts{},
	}
	f.svc = NewService(f.repo, f.notifier, f.carts, counters, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

const (
	standID = "6f1c2a9e-4b7d-4c8a-9e2f-0a1b2c3d4e01"
	hubID   = "6f1c2a9e-4b7d-4c8a-9e2f-0a1b2c3d4e02"
)

var (
	buyer  = &domain.User{ID: "user-1", Name: "Asha"}
	other  = &domain.User{ID: "user-2", Name: "Ravi"}
	admin  = &domain.User{ID: "admin-1", Name: "Admin", IsAdmin: true}
	rupees = decimal.RequireFromString
)

func checkout(paid bool) domain.NewOrderInput {
	return domain.NewOrderInput{
		Items: []domain.OrderItem{
			{ProductID: standID, Name: "Laptop stand", Price: rupees("300"), Quantity: 2},
			{ProductID: hubID, Name: "USB-C hub", Price: rupees("400"), Quantity: 1},
		},
		ShippingAddress: domain.Address{Street: "1 Campus Way", City: "Pune"},
		PaymentMethod:   "mock",
		TotalPrice:      rupees("1000"),
		IsPaid:          paid,
	}
}

func TestService_Place(t *testing.T) {
	t.Run("persists the order, notifies and clears the cart", func(t *testing.T) {
		f := newFixture(t)

		order, err := f.svc.Place(context.Background(), buyer, checkout(false))
		require.NoError(t, err)

		assert.NotEmpty(t, order.ID)
		assert.Equal(t, buyer.ID, order.UserID)
		assert.Equal(t, domain.OrderStatusPending, order.Status)
		require.Len(t, f.notifier.events, 1)
		assert.Equal(t, order.ID, f.notifier.events[0].OrderID)
		assert.Equal(t, "Asha", f.notifier.events[0].BuyerName)
		assert.Equal(t, []string{buyer.ID}, f.carts.cleared)
	})

	t.Run("a failing cart clear does not fail checkout", func(t *testing.T) {
		f := newFixture(t)
		f.carts.err = errors.New("cart store down")

		_, err := f.svc.Place(context.Background(), buyer, checkout(true))
		assert.NoError(t, err)
	})

	t.Run("empty checkout is rejected before anything happens", func(t *testing.T) {
		f := newFixture(t)
		in := checkout(false)
		in.Items = nil

		_, err := f.svc.Place(context.Background(), buyer, in)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		assert.Empty(t, f.notifier.events)
		assert.Empty(t, f.repo.orders)
	})

	t.Run("malformed product ids are rejected before the insert", func(t *testing.T) {
		f := newFixture(t)
		in := checkout(false)
		in.Items[1].ProductID = "usb-hub"

		_, err := f.svc.Place(context.Background(), buyer, in)
		require.Error(t, err)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		assert.Contains(t, err.Error(), "usb-hub")
		assert.Empty(t, f.repo.orders)
		assert.Empty(t, f.notifier.events)
	})
}

func TestService_CancelScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("unpaid order cancelled with a reason", func(t *testing.T) {
		f := newFixture(t)
		order, err := f.svc.Place(ctx, buyer, checkout(false))
		require.NoError(t, err)

		cancelled, err := f.svc.Cancel(ctx, buyer, order.ID, "changed mind")
		require.NoError(t, err)

		assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
		assert.True(t, cancelled.IsCancelled)
		assert.Equal(t, domain.RefundStatusNone, cancelled.RefundStatus)
		assert.True(t, cancelled.RefundAmount.IsZero())
	})

	t.Run("paid order refund is processed once", func(t *testing.T) {
		f := newFixture(t)
		order, err := f.svc.Place(ctx, buyer, checkout(true))
		require.NoError(t, err)

		cancelled, err := f.svc.Cancel(ctx, buyer, order.ID, "changed mind")
		require.NoError(t, err)
		assert.Equal(t, domain.RefundStatusPending, cancelled.RefundStatus)
		assert.True(t, cancelled.RefundAmount.Equal(rupees("1000")))

		refunded, err := f.svc.ProcessRefund(ctx, order.ID, "process")
		require.NoError(t, err)
		assert.Equal(t, domain.RefundStatusProcessed, refunded.RefundStatus)

		_, err = f.svc.ProcessRefund(ctx, order.ID, "process")
		assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
		assert.Contains(t, err.Error(), "already been processed")
	})

	t.Run("missing order is reported before ownership", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Cancel(ctx, other, "order-missing", "")
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})

	t.Run("another customer cannot cancel", func(t *testing.T) {
		f := newFixture(t)
		order, err := f.svc.Place(ctx, buyer, checkout(false))
		require.NoError(t, err)

		_, err = f.svc.Cancel(ctx, other, order.ID, "")
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

		stored, err := f.repo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsCancelled)
	})

	t.Run("invalid refund action is a validation error", func(t *testing.T) {
		f := newFixture(t)
		order, err := f.svc.Place(ctx, buyer, checkout(true))
		require.NoError(t, err)
		_, err = f.svc.Cancel(ctx, buyer, order.ID, "")
		require.NoError(t, err)

		_, err = f.svc.ProcessRefund(ctx, order.ID, "refund")
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))

		stored, err := f.repo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RefundStatusPending, stored.RefundStatus)
	})

	t.Run("missing order wins over an invalid refund action", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.ProcessRefund(ctx, "order-missing", "refund")
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

		_, err = f.svc.ProcessItemRefund(ctx, "order-missing", "item-1", "refund")
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})

	t.Run("refunds on a live order report the state before the action", func(t *testing.T) {
		f := newFixture(t)
		order, err := f.svc.Place(ctx, buyer, checkout(true))
		require.NoError(t, err)

		_, err = f.svc.ProcessRefund(ctx, order.ID, "refund")
		assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))

		_, err = f.svc.ProcessItemRefund(ctx, order.ID, "nope", "refund")
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})
}

func TestService_CancelItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order, err := f.svc.Place(ctx, buyer, checkout(true))
	require.NoError(t, err)

	first, second := order.Items[0].ID, order.Items[1].ID

	updated, err := f.svc.CancelItem(ctx, buyer, order.ID, first, "")
	require.NoError(t, err)
	assert.True(t, updated.TotalPrice.Equal(rupees("400")))
	assert.False(t, updated.IsCancelled)

	updated, err = f.svc.CancelItem(ctx, buyer, order.ID, second, "")
	require.NoError(t, err)
	assert.True(t, updated.IsCancelled)
	assert.Equal(t, domain.AllItemsCancelledReason, updated.CancellationReason)

	refunded, err := f.svc.ProcessItemRefund(ctx, order.ID, first, "process")
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusProcessed, refunded.Items[0].RefundStatus)
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order, err := f.svc.Place(ctx, buyer, checkout(false))
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, buyer, order.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, admin, order.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, other, order.ID)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	order, err := f.svc.Place(ctx, buyer, checkout(true))
	require.NoError(t, err)

	shipped, err := f.svc.UpdateStatus(ctx, order.ID, domain.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, shipped.Status)

	_, err = f.svc.Cancel(ctx, buyer, order.ID, "")
	assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
	assert.Contains(t, err.Error(), "contact support")
}
