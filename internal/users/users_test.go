package users

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/joao-fontenele/dormdeals/internal/auth"
	"github.com/joao-fontenele/dormdeals/internal/domain"
)

type memoryRepo struct {
	users map[string]domain.User
	seq   int
}

func (m *memoryRepo) Create(_ context.Context, u *domain.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return errUserExists
		}
	}
	m.seq++
	u.ID = fmt.Sprintf("user-%d", m.seq)
	m.users[u.ID] = *u
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, errUserNotFound
	}
	return &u, nil
}

func (m *memoryRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, errUserNotFound
}

func (m *memoryRepo) Update(_ context.Context, u *domain.User) error {
	m.users[u.ID] = *u
	return nil
}

type fakeCarts struct {
	server map[string][]domain.CartItem
}

func (c *fakeCarts) MergeCart(_ context.Context, userID string, guest []domain.CartItem) ([]domain.CartLine, error) {
	merged := domain.MergeCarts(c.server[userID], guest)
	c.server[userID] = merged
	lines := make([]domain.CartLine, 0, len(merged))
	for _, item := range merged {
		lines = append(lines, domain.CartLine{Product: domain.Product{ID: item.ProductID}, Quantity: item.Quantity})
	}
	return lines, nil
}

func newTestService() (*Service, *memoryRepo, *fakeCarts) {
	repo := &memoryRepo{users: map[string]domain.User{}}
	carts := &fakeCarts{server: map[string][]domain.CartItem{}}
	svc := NewService(repo, carts,
		auth.NewTokenIssuer("s3cret", time.Hour),
		auth.NewPasswordHasher(bcrypt.MinCost),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, repo, carts
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a token and hashes the password", func(t *testing.T) {
		svc, repo, _ := newTestService()

		session, err := svc.Register(ctx, "Asha", "Asha@Campus.edu", "hunter22")
		require.NoError(t, err)

		assert.NotEmpty(t, session.Token)
		assert.Equal(t, "asha@campus.edu", session.User.Email)
		stored := repo.users[session.User.ID]
		assert.NotEqual(t, "hunter22", stored.PasswordHash)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.Register(ctx, "Asha", "asha@campus.edu", "hunter22")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "Other Asha", "ASHA@campus.edu", "hunter22")
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
		assert.Equal(t, "User already exists", err.Error())
	})

	t.Run("short password is rejected", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.Register(ctx, "Asha", "asha@campus.edu", "123")
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc, _, carts := newTestService()
	registered, err := svc.Register(ctx, "Asha", "asha@campus.edu", "hunter22")
	require.NoError(t, err)
	carts.server[registered.User.ID] = []domain.CartItem{{ProductID: "p1", Quantity: 2}}

	t.Run("merges the guest cart into the stored cart", func(t *testing.T) {
		session, err := svc.Login(ctx, "asha@campus.edu", "hunter22",
			[]domain.CartItem{{ProductID: "p1", Quantity: 1}, {ProductID: "p2", Quantity: 3}})
		require.NoError(t, err)

		require.Len(t, session.Cart, 2)
		assert.Equal(t, "p1", session.Cart[0].Product.ID)
		assert.Equal(t, 3, session.Cart[0].Quantity)
		assert.Equal(t, "p2", session.Cart[1].Product.ID)
		assert.Equal(t, 3, session.Cart[1].Quantity)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		_, err := svc.Login(ctx, "asha@campus.edu", "wrong-password", nil)
		assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
		assert.Equal(t, "Invalid email or password", err.Error())

		_, err = svc.Login(ctx, "nobody@campus.edu", "hunter22", nil)
		assert.Equal(t, "Invalid email or password", err.Error())
	})
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()
	asha, err := svc.Register(ctx, "Asha", "asha@campus.edu", "hunter22")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Ravi", "ravi@campus.edu", "hunter22")
	require.NoError(t, err)

	t.Run("changes the password", func(t *testing.T) {
		pw := "new-password"
		_, err := svc.UpdateProfile(ctx, asha.User, domain.ProfileUpdate{Password: &pw})
		require.NoError(t, err)

		_, err = svc.Login(ctx, "asha@campus.edu", "new-password", nil)
		assert.NoError(t, err)
	})

	t.Run("taking another user's email is a conflict", func(t *testing.T) {
		current := repo.users[asha.User.ID]
		email := "ravi@campus.edu"
		_, err := svc.UpdateProfile(ctx, &current, domain.ProfileUpdate{Email: &email})
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	})
}

func TestHandler_HandleLogin(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Register(context.Background(), "Asha", "asha@campus.edu", "hunter22")
	require.NoError(t, err)
	h := NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	t.Run("returns token, user and cart", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleLogin(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"asha@campus.edu","password":"hunter22","cart":[{"product":"p9","qty":1}]}`)))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["token"])
		assert.Len(t, body["cart"], 1)
		user := body["user"].(map[string]any)
		assert.NotContains(t, user, "passwordHash")
		assert.NotContains(t, user, "PasswordHash")
	})

	t.Run("bad credentials are a 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.HandleLogin(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"asha@campus.edu","password":"nope"}`)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"Invalid email or password"}`, rec.Body.String())
	})
}
