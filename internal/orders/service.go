package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/dormdeals/internal/database"
	"github.com/joao-fontenele/dormdeals/internal/domain"
	"github.com/joao-fontenele/dormdeals/internal/telemetry"
)

type Repository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	Update(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error)
}

// Notifier hands a placed order to the notification fan-out. It must not
// block on the fan-out itself.
type Notifier interface {
	OrderPlaced(ctx context.Context, event domain.OrderPlacedEvent)
}

type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

type Service struct {
	repo     Repository
	notifier Notifier
	carts    CartClearer
	counters *telemetry.Counters
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, carts CartClearer, counters *telemetry.Counters, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		carts:    carts,
		counters: counters,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Place persists a checkout, then notifies admins and empties the buyer's
// cart. Neither follow-up can fail the order.
func (s *Service) Place(ctx context.Context, buyer *domain.User, in domain.NewOrderInput) (*domain.Order, error) {
	in.UserID = buyer.ID
	order, err := domain.NewOrder(in, s.now())
	if err != nil {
		return nil, err
	}
	for _, item := range order.Items {
		if !database.ValidID(item.ProductID) {
			return nil, domain.Validation(fmt.Sprintf("Invalid product id %q", item.ProductID))
		}
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}
	s.counters.OrdersPlaced.Add(ctx, 1, metric.WithAttributes(attribute.Bool("paid", order.IsPaid)))

	s.notifier.OrderPlaced(ctx, domain.NewOrderPlacedEvent(order, buyer.Name))

	if err := s.carts.ClearCart(ctx, buyer.ID); err != nil {
		s.logger.Error("failed to clear cart after checkout", "error", err, "user_id", buyer.ID, "order_id", order.ID)
	}

	s.logger.Info("order placed", "order_id", order.ID, "user_id", buyer.ID, "paid", order.IsPaid)
	return order, nil
}

func (s *Service) Pay(ctx context.Context, actor *domain.User, id string) (*domain.Order, error) {
	return s.repo.Update(ctx, id, func(o *domain.Order) error {
		return o.Pay(actor.ID, s.now())
	})
}

func (s *Service) Get(ctx context.Context, actor *domain.User, id string) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.CanView(actor.ID, actor.IsAdmin) {
		return nil, domain.Forbidden("Not authorized to view this order")
	}
	return order, nil
}

func (s *Service) ListMine(ctx context.Context, actor *domain.User) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, actor.ID)
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	order, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		return o.UpdateStatus(status, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	return order, nil
}

func (s *Service) Cancel(ctx context.Context, actor *domain.User, id, reason string) (*domain.Order, error) {
	order, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		return o.Cancel(actor.ID, reason, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.counters.OrdersCancelled.Add(ctx, 1, metric.WithAttributes(attribute.String("trigger", "customer")))
	s.logger.Info("order cancelled", "order_id", order.ID, "refund_status", order.RefundStatus)
	return order, nil
}

func (s *Service) CancelItem(ctx context.Context, actor *domain.User, id, itemID, reason string) (*domain.Order, error) {
	var wasCancelled bool
	order, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		wasCancelled = o.IsCancelled
		return o.CancelItem(actor.ID, itemID, reason, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.counters.OrderItemsCancelled.Add(ctx, 1)
	if order.IsCancelled && !wasCancelled {
		s.counters.OrdersCancelled.Add(ctx, 1, metric.WithAttributes(attribute.String("trigger", "items")))
	}
	s.logger.Info("order item cancelled", "order_id", order.ID, "item_id", itemID, "total_price", order.TotalPrice)
	return order, nil
}

// ProcessRefund resolves a whole-order refund. The action is validated by the
// order after its existence and state guards.
func (s *Service) ProcessRefund(ctx context.Context, id, action string) (*domain.Order, error) {
	a := domain.RefundAction(action)
	order, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		return o.ProcessRefund(a, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.counters.RefundsResolved.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", string(a)), attribute.String("scope", "order")))
	s.logger.Info("refund resolved", "order_id", order.ID, "action", a)
	return order, nil
}

func (s *Service) ProcessItemRefund(ctx context.Context, id, itemID, action string) (*domain.Order, error) {
	a := domain.RefundAction(action)
	order, err := s.repo.Update(ctx, id, func(o *domain.Order) error {
		return o.ProcessItemRefund(itemID, a, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.counters.RefundsResolved.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", string(a)), attribute.String("scope", "item")))
	s.logger.Info("item refund resolved", "order_id", order.ID, "item_id", itemID, "action", a)
	return order, nil
}
