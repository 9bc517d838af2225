package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/joao-fontenele/dormdeals/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
}

type StockNotifier interface {
	StockLow(ctx context.Context, event domain.StockLowEvent)
}

type Service struct {
	repo              Repository
	notifier          StockNotifier
	lowStockThreshold int
	logger            *slog.Logger
	now               func() time.Time
}

func NewService(repo Repository, notifier StockNotifier, lowStockThreshold int, logger *slog.Logger) *Service {
	return &Service{
		repo:              repo,
		notifier:          notifier,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, c domain.ProductChanges) (*domain.Product, error) {
	p, err := domain.NewProduct(c, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("product created", "product_id", p.ID, "stock", p.Stock)
	s.checkStock(ctx, p)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, c domain.ProductChanges) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Apply(c, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("product updated", "product_id", p.ID, "stock", p.Stock)
	s.checkStock(ctx, p)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", "product_id", id)
	return nil
}

func (s *Service) checkStock(ctx context.Context, p *domain.Product) {
	if !p.IsLowStock(s.lowStockThreshold) {
		return
	}
	s.notifier.StockLow(ctx, domain.StockLowEvent{
		ProductID:   p.ID,
		ProductName: p.Name,
		Stock:       p.Stock,
		Threshold:   s.lowStockThreshold,
		Timestamp:   s.now(),
	})
}
