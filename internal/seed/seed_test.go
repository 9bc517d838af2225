package seed

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/dormdeals/internal/domain"
)

type productStore struct {
	created []domain.Product
	count   int
}

func (s *productStore) Create(_ context.Context, p *domain.Product) error {
	s.created = append(s.created, *p)
	return nil
}

func (s *productStore) Count(context.Context) (int, error) {
	return s.count + len(s.created), nil
}

type userStore struct {
	byEmail map[string]*domain.User
}

func (s *userStore) Create(_ context.Context, u *domain.User) error {
	u.ID = "admin-1"
	s.byEmail[u.Email] = u
	return nil
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, domain.NotFound("User not found")
	}
	return u, nil
}

func (s *userStore) Update(_ context.Context, u *domain.User) error {
	s.byEmail[u.Email] = u
	return nil
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func newTestSeeder() (*Seeder, *productStore, *userStore) {
	products := &productStore{}
	users := &userStore{byEmail: map[string]*domain.User{}}
	return NewSeeder(products, users, plainHasher{}, slog.New(slog.NewTextHandler(io.Discard, nil))), products, users
}

func TestLoadFile(t *testing.T) {
	file, err := LoadFile("../../seed/catalog.yaml")
	require.NoError(t, err)

	require.NotNil(t, file.Admin)
	assert.NotEmpty(t, file.Admin.Email)
	require.NotEmpty(t, file.Products)
	for _, p := range file.Products {
		_, err := p.changes()
		assert.NoError(t, err, p.Name)
	}
}

func TestParse(t *testing.T) {
	t.Run("rejects unknown keys", func(t *testing.T) {
		_, err := Parse(strings.NewReader("products:\n  - name: Lamp\n    prise: \"10\"\n"))
		assert.Error(t, err)
	})

	t.Run("an empty file is an empty seed", func(t *testing.T) {
		file, err := Parse(strings.NewReader(""))
		require.NoError(t, err)
		assert.Nil(t, file.Admin)
		assert.Empty(t, file.Products)
	})
}

func TestSeeder_Apply(t *testing.T) {
	ctx := context.Background()
	file, err := Parse(strings.NewReader(`
admin:
  name: Meera
  email: Meera@Campus.edu
  password: s3cret-pass
products:
  - name: Desk lamp
    price: "799.50"
    usage: [Student]
    stock: 3
  - name: Monitor
    price: "12999"
    stock: 8
`))
	require.NoError(t, err)

	t.Run("creates the admin and the catalog", func(t *testing.T) {
		seeder, products, users := newTestSeeder()

		require.NoError(t, seeder.Apply(ctx, file))

		admin := users.byEmail["meera@campus.edu"]
		require.NotNil(t, admin)
		assert.True(t, admin.IsAdmin)
		assert.Equal(t, "hashed:s3cret-pass", admin.PasswordHash)

		require.Len(t, products.created, 2)
		assert.Equal(t, "799.5", products.created[0].Price.String())
		assert.Equal(t, []string{"Student"}, products.created[0].Usage)
	})

	t.Run("running twice changes nothing", func(t *testing.T) {
		seeder, products, _ := newTestSeeder()

		require.NoError(t, seeder.Apply(ctx, file))
		require.NoError(t, seeder.Apply(ctx, file))
		assert.Len(t, products.created, 2)
	})

	t.Run("promotes an existing account", func(t *testing.T) {
		seeder, _, users := newTestSeeder()
		users.byEmail["meera@campus.edu"] = &domain.User{ID: "u9", Email: "meera@campus.edu", PasswordHash: "kept"}

		require.NoError(t, seeder.Apply(ctx, file))
		assert.True(t, users.byEmail["meera@campus.edu"].IsAdmin)
		assert.Equal(t, "kept", users.byEmail["meera@campus.edu"].PasswordHash)
	})

	t.Run("bad prices fail the seed", func(t *testing.T) {
		seeder, _, _ := newTestSeeder()
		err := seeder.Apply(ctx, &File{Products: []Product{{Name: "Lamp", Price: "cheap"}}})
		assert.ErrorContains(t, err, "invalid price")
	})
}
