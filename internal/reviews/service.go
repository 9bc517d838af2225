package reviews

import (
	"context"
	"log/slog"
	"time"

	"github.com/joao-fontenele/dormdeals/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, rv *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	Exists(ctx context.Context, userID, productID string) (bool, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)
	RatingTotals(ctx context.Context, productID string) (sum, count int64, err error)
	Delete(ctx context.Context, id string) error
}

type Products interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// Purchases answers whether a review comes from a verified buyer.
type Purchases interface {
	HasDeliveredPurchase(ctx context.Context, userID, productID string) (bool, error)
}

type Authorizer interface {
	Allowed(u *domain.User, obj, act string) (bool, error)
}

type Service struct {
	repo      Repository
	products  Products
	purchases Purchases
	authz     Authorizer
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, products Products, purchases Purchases, authz Authorizer, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		purchases: purchases,
		authz:     authz,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, productID string) ([]domain.Review, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListByProduct(ctx, productID)
}

func (s *Service) Create(ctx context.Context, author *domain.User, productID string, rating int, comment string) (*domain.Review, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	exists, err := s.repo.Exists(ctx, author.ID, productID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errAlreadyReviewed
	}

	verified, err := s.purchases.HasDeliveredPurchase(ctx, author.ID, productID)
	if err != nil {
		return nil, err
	}
	rv, err := domain.NewReview(author.ID, author.Name, productID, rating, comment, verified, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rv); err != nil {
		return nil, err
	}
	s.logger.Info("review created", "review_id", rv.ID, "product_id", productID, "verified", verified)
	return rv, nil
}

func (s *Service) Summary(ctx context.Context, productID string) (domain.RatingSummary, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return domain.RatingSummary{}, err
	}
	sum, count, err := s.repo.RatingTotals(ctx, productID)
	if err != nil {
		return domain.RatingSummary{}, err
	}
	return domain.SummarizeRatings(sum, count), nil
}

// Delete removes a review written by u, or any review when u may moderate.
func (s *Service) Delete(ctx context.Context, u *domain.User, id string) error {
	rv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rv.UserID != u.ID {
		allowed, err := s.authz.Allowed(u, "reviews", "delete")
		if err != nil {
			return err
		}
		if !allowed {
			return domain.Forbidden("Not authorized to delete this review")
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("review deleted", "review_id", id, "by", u.ID)
	return nil
}
