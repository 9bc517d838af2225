package admin

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/dormdeals/internal/domain"
)

const recentOrdersLimit = 5

type Users interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	List(ctx context.Context) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
}

type Products interface {
	Count(ctx context.Context) (int, error)
	LowStock(ctx context.Context, threshold int) ([]domain.Product, error)
}

type Orders interface {
	Stats(ctx context.Context) (*domain.OrderStats, error)
	Recent(ctx context.Context, limit int) ([]domain.Order, error)
}

type Dashboard struct {
	TotalUsers     int                        `json:"totalUsers"`
	TotalProducts  int                        `json:"totalProducts"`
	TotalOrders    int                        `json:"totalOrders"`
	Revenue        decimal.Decimal            `json:"revenue"`
	OrdersByStatus map[domain.OrderStatus]int `json:"ordersByStatus"`
	PendingRefunds int                        `json:"pendingRefunds"`
	LowStock       []domain.Product           `json:"lowStockProducts"`
	RecentOrders   []domain.Order             `json:"recentOrders"`
}

type Service struct {
	users             Users
	products          Products
	orders            Orders
	lowStockThreshold int
	logger            *slog.Logger
	now               func() time.Time
}

func NewService(users Users, products Products, orders Orders, lowStockThreshold int, logger *slog.Logger) *Service {
	return &Service{
		users:             users,
		products:          products,
		orders:            orders,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		d     Dashboard
		stats *domain.OrderStats
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.TotalUsers, err = s.users.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.TotalProducts, err = s.products.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.LowStock, err = s.products.LowStock(ctx, s.lowStockThreshold)
		return err
	})
	g.Go(func() (err error) {
		stats, err = s.orders.Stats(ctx)
		return err
	})
	g.Go(func() (err error) {
		d.RecentOrders, err = s.orders.Recent(ctx, recentOrdersLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.TotalOrders = stats.TotalOrders
	d.Revenue = stats.Revenue
	d.OrdersByStatus = stats.ByStatus
	d.PendingRefunds = stats.PendingRefunds
	return &d, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// SetAdmin grants or revokes admin rights. Admins cannot demote themselves.
func (s *Service) SetAdmin(ctx context.Context, actor *domain.User, id string, isAdmin bool) (*domain.User, error) {
	if actor.ID == id && !isAdmin {
		return nil, domain.InvalidState("Admins cannot remove their own admin rights")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsAdmin == isAdmin {
		return u, nil
	}
	u.IsAdmin = isAdmin
	u.UpdatedAt = s.now()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("admin rights changed", "user_id", id, "is_admin", isAdmin, "by", actor.ID)
	return u, nil
}
