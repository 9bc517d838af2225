// Package seed loads a starter catalog and a bootstrap admin account.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/joao-fontenele/dormdeals/internal/domain"
)

type File struct {
	Admin    *Admin    `yaml:"admin"`
	Products []Product `yaml:"products"`
}

type Admin struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type Product struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description"`
	Price       string              `yaml:"price"`
	Brand       string              `yaml:"brand"`
	Category    string              `yaml:"category"`
	Image       string              `yaml:"image"`
	Specs       domain.ProductSpecs `yaml:"specs"`
	Usage       []string            `yaml:"usage"`
	Stock       int                 `yaml:"stock"`
}

func (p Product) changes() (domain.ProductChanges, error) {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return domain.ProductChanges{}, fmt.Errorf("product %q: invalid price %q", p.Name, p.Price)
	}
	return domain.ProductChanges{
		Name:        &p.Name,
		Description: &p.Description,
		Price:       &price,
		Brand:       &p.Brand,
		Category:    &p.Category,
		Image:       &p.Image,
		Specs:       &p.Specs,
		Usage:       p.Usage,
		Stock:       &p.Stock,
	}, nil
}

func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse decodes a seed file. Unknown keys are rejected so typos do not
// silently drop data.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return &file, nil
}

type ProductStore interface {
	Create(ctx context.Context, p *domain.Product) error
	Count(ctx context.Context) (int, error)
}

type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

type Hasher interface {
	Hash(password string) (string, error)
}

type Seeder struct {
	products ProductStore
	users    UserStore
	hasher   Hasher
	logger   *slog.Logger
	now      func() time.Time
}

func NewSeeder(products ProductStore, users UserStore, hasher Hasher, logger *slog.Logger) *Seeder {
	return &Seeder{
		products: products,
		users:    users,
		hasher:   hasher,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Apply creates the admin account, or promotes an existing account with the
// same email, and loads the products into an empty catalog. A catalog that
// already has products is left alone.
func (s *Seeder) Apply(ctx context.Context, file *File) error {
	if file.Admin != nil {
		if err := s.ensureAdmin(ctx, *file.Admin); err != nil {
			return err
		}
	}

	existing, err := s.products.Count(ctx)
	if err != nil {
		return err
	}
	if existing > 0 {
		s.logger.Info("catalog already seeded", "products", existing)
		return nil
	}

	now := s.now()
	for _, entry := range file.Products {
		changes, err := entry.changes()
		if err != nil {
			return err
		}
		p, err := domain.NewProduct(changes, now)
		if err != nil {
			return fmt.Errorf("product %q: %w", entry.Name, err)
		}
		if err := s.products.Create(ctx, p); err != nil {
			return fmt.Errorf("create product %q: %w", entry.Name, err)
		}
	}
	s.logger.Info("catalog seeded", "products", len(file.Products))
	return nil
}

func (s *Seeder) ensureAdmin(ctx context.Context, a Admin) error {
	u, err := domain.NewUser(a.Name, a.Email, s.now())
	if err != nil {
		return fmt.Errorf("admin account: %w", err)
	}

	existing, err := s.users.GetByEmail(ctx, u.Email)
	switch {
	case err == nil:
		if existing.IsAdmin {
			s.logger.Info("admin account exists", "email", u.Email)
			return nil
		}
		existing.IsAdmin = true
		existing.UpdatedAt = s.now()
		if err := s.users.Update(ctx, existing); err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		s.logger.Info("promoted existing account to admin", "email", u.Email)
		return nil
	case domain.KindOf(err) != domain.KindNotFound:
		return err
	}

	if err := domain.ValidatePassword(a.Password); err != nil {
		return fmt.Errorf("admin account: %w", err)
	}
	if u.PasswordHash, err = s.hasher.Hash(a.Password); err != nil {
		return err
	}
	u.IsAdmin = true
	if err := s.users.Create(ctx, u); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info("admin account created", "email", u.Email)
	return nil
}
