package users

import (
	"context"
	"log/slog"
	"time"

	"github.com/joao-fontenele/dormdeals/internal/auth"
	"github.com/joao-fontenele/dormdeals/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

// CartMerger folds a guest cart into the stored cart at sign-in and returns
// the populated result.
type CartMerger interface {
	MergeCart(ctx context.Context, userID string, guest []domain.CartItem) ([]domain.CartLine, error)
}

var errInvalidCredentials = domain.Unauthorized("Invalid email or password")

type Service struct {
	repo   Repository
	carts  CartMerger
	tokens *auth.TokenIssuer
	hasher *auth.PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, carts CartMerger, tokens *auth.TokenIssuer, hasher *auth.PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		carts:  carts,
		tokens: tokens,
		hasher: hasher,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type Session struct {
	Token string            `json:"token"`
	User  *domain.User      `json:"user"`
	Cart  []domain.CartLine `json:"cart"`
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	u, err := domain.NewUser(name, email, s.now())
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, u.Email); err == nil {
		return nil, errUserExists
	} else if domain.KindOf(err) != domain.KindNotFound {
		return nil, err
	}

	if u.PasswordHash, err = s.hasher.Hash(password); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", u.ID)
	return &Session{Token: token, User: u, Cart: []domain.CartLine{}}, nil
}

// Login checks the credentials and merges the guest cart, if any, into the
// stored one. The merged cart is returned with the session.
func (s *Service) Login(ctx context.Context, email, password string, guestCart []domain.CartItem) (*Session, error) {
	normalized, err := domain.NormalizeEmail(email)
	if err != nil {
		return nil, errInvalidCredentials
	}
	u, err := s.repo.GetByEmail(ctx, normalized)
	if domain.KindOf(err) == domain.KindNotFound {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Matches(u.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errInvalidCredentials
	}

	cart, err := s.carts.MergeCart(ctx, u.ID, guestCart)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", "user_id", u.ID, "guest_items", len(guestCart))
	return &Session{Token: token, User: u, Cart: cart}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, u *domain.User, p domain.ProfileUpdate) (*domain.User, error) {
	updated := *u
	if err := updated.ApplyProfile(p, s.now()); err != nil {
		return nil, err
	}
	if p.Password != nil && *p.Password != "" {
		if err := domain.ValidatePassword(*p.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*p.Password)
		if err != nil {
			return nil, err
		}
		updated.PasswordHash = hash
	}

	if updated.Email != u.Email {
		existing, err := s.repo.GetByEmail(ctx, updated.Email)
		if err == nil && existing.ID != u.ID {
			return nil, errUserExists
		}
		if err != nil && domain.KindOf(err) != domain.KindNotFound {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}
	s.logger.Info("profile updated", "user_id", u.ID)
	return &updated, nil
}
