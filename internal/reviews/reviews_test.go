package reviews

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/dormdeals/internal/auth"
	"github.com/joao-fontenele/dormdeals/internal/domain"
)

type memoryRepo struct {
	reviews map[string]domain.Review
	seq     int
}

func (m *memoryRepo) Create(_ context.Context, rv *domain.Review) error {
	m.seq++
	rv.ID = fmt.Sprintf("review-%d", m.seq)
	m.reviews[rv.ID] = *rv
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id string) (*domain.Review, error) {
	rv, ok := m.reviews[id]
	if !ok {
		return nil, errReviewNotFound
	}
	return &rv, nil
}

func (m *memoryRepo) Exists(_ context.Context, userID, productID string) (bool, error) {
	for _, rv := range m.reviews {
		if rv.UserID == userID && rv.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) ListByProduct(_ context.Context, productID string) ([]domain.Review, error) {
	list := []domain.Review{}
	for _, rv := range m.reviews {
		if rv.ProductID == productID {
			list = append(list, rv)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (m *memoryRepo) RatingTotals(_ context.Context, productID string) (int64, int64, error) {
	var sum, count int64
	for _, rv := range m.reviews {
		if rv.ProductID == productID {
			sum += int64(rv.Rating)
			count++
		}
	}
	return sum, count, nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	delete(m.reviews, id)
	return nil
}

type productStub map[string]bool

func (p productStub) GetByID(_ context.Context, id string) (*domain.Product, error) {
	if !p[id] {
		return nil, domain.NotFound("Product not found")
	}
	return &domain.Product{ID: id}, nil
}

type purchaseStub map[string]bool

func (p purchaseStub) HasDeliveredPurchase(_ context.Context, userID, productID string) (bool, error) {
	return p[userID+"/"+productID], nil
}

var (
	asha  = &domain.User{ID: "u1", Name: "Asha"}
	ravi  = &domain.User{ID: "u2", Name: "Ravi"}
	admin = &domain.User{ID: "u3", Name: "Meera", IsAdmin: true}
)

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	authz, err := auth.NewAuthorizer()
	require.NoError(t, err)

	repo := &memoryRepo{reviews: map[string]domain.Review{}}
	svc := NewService(repo, productStub{"p1": true, "p2": true}, purchaseStub{"u1/p1": true}, authz,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return svc, repo
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("marks reviews from delivered buyers as verified", func(t *testing.T) {
		svc, _ := newTestService(t)

		rv, err := svc.Create(ctx, asha, "p1", 5, "Sturdy stand")
		require.NoError(t, err)
		assert.True(t, rv.IsVerifiedPurchase)
		assert.Equal(t, "Asha", rv.UserName)

		rv, err = svc.Create(ctx, ravi, "p1", 3, "Wobbles a bit")
		require.NoError(t, err)
		assert.False(t, rv.IsVerifiedPurchase)
	})

	t.Run("a second review of the same product is a conflict", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Create(ctx, asha, "p1", 5, "Sturdy stand")
		require.NoError(t, err)

		_, err = svc.Create(ctx, asha, "p1", 1, "Changed my mind")
		assert.Equal(t, domain.KindConflict, domain.KindOf(err))
		assert.Equal(t, "Product already reviewed", err.Error())
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Create(ctx, asha, "ghost", 5, "Where is it")
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})

	t.Run("rating out of range is rejected", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Create(ctx, asha, "p1", 6, "Off the charts")
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})
}

func TestService_Summary(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	summary, err := svc.Summary(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, domain.RatingSummary{}, summary)

	_, err = svc.Create(ctx, asha, "p2", 5, "Great")
	require.NoError(t, err)
	_, err = svc.Create(ctx, ravi, "p2", 4, "Good")
	require.NoError(t, err)

	summary, err = svc.Summary(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, domain.RatingSummary{AverageRating: 4.5, NumReviews: 2}, summary)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("only the author or an admin may delete", func(t *testing.T) {
		svc, repo := newTestService(t)
		rv, err := svc.Create(ctx, asha, "p1", 5, "Sturdy stand")
		require.NoError(t, err)

		err = svc.Delete(ctx, ravi, rv.ID)
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

		require.NoError(t, svc.Delete(ctx, admin, rv.ID))
		assert.Empty(t, repo.reviews)
	})

	t.Run("authors delete their own review", func(t *testing.T) {
		svc, repo := newTestService(t)
		rv, err := svc.Create(ctx, ravi, "p2", 2, "Meh")
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, ravi, rv.ID))
		assert.Empty(t, repo.reviews)
	})
}

func TestHandler_List(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, asha, "p1", 5, "First")
	require.NoError(t, err)
	_, err = svc.Create(ctx, ravi, "p1", 4, "Second")
	require.NoError(t, err)

	h := NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/{id}/reviews", h.HandleList)
	mux.HandleFunc("GET /products/{id}/reviews/average", h.HandleSummary)

	t.Run("newest first", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/p1/reviews", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Less(t, strings.Index(body, "Second"), strings.Index(body, "First"))
	})

	t.Run("average", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/p1/reviews/average", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"averageRating":4.5,"numReviews":2}`, rec.Body.String())
	})
}
