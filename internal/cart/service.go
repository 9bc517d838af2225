package cart

import (
	"context"
	"log/slog"

	"github.com/joao-fontenele/dormdeals/internal/domain"
)

type Repository interface {
	Items(ctx context.Context, userID string) ([]domain.CartItem, error)
	UpdateItems(ctx context.Context, userID string, fn func([]domain.CartItem) ([]domain.CartItem, error)) ([]domain.CartItem, error)
	Wishlist(ctx context.Context, userID string) ([]string, error)
	UpdateWishlist(ctx context.Context, userID string, fn func([]string) ([]string, error)) ([]string, error)
}

// Products resolves product ids; missing ids are absent from the result.
type Products interface {
	GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

var errProductNotFound = domain.NotFound("Product not found")

type Service struct {
	repo     Repository
	products Products
	logger   *slog.Logger
}

func NewService(repo Repository, products Products, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		products: products,
		logger:   logger,
	}
}

func (s *Service) Get(ctx context.Context, userID string) ([]domain.CartLine, error) {
	items, err := s.repo.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, userID, items)
}

func (s *Service) Add(ctx context.Context, userID, productID string, qty int) ([]domain.CartLine, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.update(ctx, userID, func(items []domain.CartItem) ([]domain.CartItem, error) {
		return domain.AddToCart(items, productID, qty)
	})
}

func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int) ([]domain.CartLine, error) {
	return s.update(ctx, userID, func(items []domain.CartItem) ([]domain.CartItem, error) {
		return domain.SetCartQuantity(items, productID, qty)
	})
}

func (s *Service) Remove(ctx context.Context, userID, productID string) ([]domain.CartLine, error) {
	return s.update(ctx, userID, func(items []domain.CartItem) ([]domain.CartItem, error) {
		return domain.RemoveFromCart(items, productID)
	})
}

func (s *Service) Clear(ctx context.Context, userID string) ([]domain.CartLine, error) {
	if err := s.ClearCart(ctx, userID); err != nil {
		return nil, err
	}
	return []domain.CartLine{}, nil
}

// ClearCart empties the cart after checkout.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	_, err := s.repo.UpdateItems(ctx, userID, func([]domain.CartItem) ([]domain.CartItem, error) {
		return []domain.CartItem{}, nil
	})
	return err
}

// Replace overwrites the stored cart with the client's copy, as done on logout.
func (s *Service) Replace(ctx context.Context, userID string, items []domain.CartItem) ([]domain.CartLine, error) {
	return s.update(ctx, userID, func([]domain.CartItem) ([]domain.CartItem, error) {
		return s.knownOnly(ctx, userID, domain.MergeCarts(nil, items))
	})
}

// MergeCart folds a guest cart into the stored one. Products that no longer
// exist are dropped from the result.
func (s *Service) MergeCart(ctx context.Context, userID string, guest []domain.CartItem) ([]domain.CartLine, error) {
	return s.update(ctx, userID, func(items []domain.CartItem) ([]domain.CartItem, error) {
		return s.knownOnly(ctx, userID, domain.MergeCarts(items, guest))
	})
}

func (s *Service) update(ctx context.Context, userID string, fn func([]domain.CartItem) ([]domain.CartItem, error)) ([]domain.CartLine, error) {
	items, err := s.repo.UpdateItems(ctx, userID, fn)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, userID, items)
}

func (s *Service) knownOnly(ctx context.Context, userID string, items []domain.CartItem) ([]domain.CartItem, error) {
	found, err := s.products.GetMany(ctx, cartProductIDs(items))
	if err != nil {
		return nil, err
	}
	out := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		if _, ok := found[item.ProductID]; !ok {
			s.logger.Warn("dropping unknown product from cart", "user_id", userID, "product_id", item.ProductID)
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Service) populate(ctx context.Context, userID string, items []domain.CartItem) ([]domain.CartLine, error) {
	found, err := s.products.GetMany(ctx, cartProductIDs(items))
	if err != nil {
		return nil, err
	}
	lines := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		p, ok := found[item.ProductID]
		if !ok {
			s.logger.Warn("cart references unknown product", "user_id", userID, "product_id", item.ProductID)
			continue
		}
		lines = append(lines, domain.CartLine{Product: p, Quantity: item.Quantity})
	}
	return lines, nil
}

func (s *Service) requireProduct(ctx context.Context, productID string) error {
	found, err := s.products.GetMany(ctx, []string{productID})
	if err != nil {
		return err
	}
	if _, ok := found[productID]; !ok {
		return errProductNotFound
	}
	return nil
}

func cartProductIDs(items []domain.CartItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func (s *Service) Wishlist(ctx context.Context, userID string) ([]domain.Product, error) {
	ids, err := s.repo.Wishlist(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.wishlistProducts(ctx, ids)
}

func (s *Service) AddToWishlist(ctx context.Context, userID, productID string) ([]domain.Product, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	ids, err := s.repo.UpdateWishlist(ctx, userID, func(current []string) ([]string, error) {
		next, _ := domain.AddToWishlist(current, productID)
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return s.wishlistProducts(ctx, ids)
}

func (s *Service) RemoveFromWishlist(ctx context.Context, userID, productID string) ([]domain.Product, error) {
	ids, err := s.repo.UpdateWishlist(ctx, userID, func(current []string) ([]string, error) {
		next, removed := domain.RemoveFromWishlist(current, productID)
		if !removed {
			return nil, domain.NotFound("Product not in wishlist")
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return s.wishlistProducts(ctx, ids)
}

func (s *Service) wishlistProducts(ctx context.Context, ids []string) ([]domain.Product, error) {
	found, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
