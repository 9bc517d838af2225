package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joao-fontenele/dormdeals/internal/database"
	"github.com/joao-fontenele/dormdeals/internal/domain"
)

var (
	errReviewNotFound  = domain.NotFound("Review not found")
	errAlreadyReviewed = domain.Conflict("Product already reviewed")
)

type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `id, user_id, user_name, product_id, rating, comment, is_verified_purchase, created_at`

func scanReview(row database.RowScanner) (*domain.Review, error) {
	rv := &domain.Review{}
	err := row.Scan(&rv.ID, &rv.UserID, &rv.UserName, &rv.ProductID, &rv.Rating, &rv.Comment,
		&rv.IsVerifiedPurchase, &rv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rv, nil
}

func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	rv.ID = database.NewID()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rv.ID, rv.UserID, rv.UserName, rv.ProductID, rv.Rating, rv.Comment, rv.IsVerifiedPurchase, rv.CreatedAt)
	if database.IsUniqueViolation(err) {
		return errAlreadyReviewed
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	if !database.ValidID(id) {
		return nil, errReviewNotFound
	}
	rv, err := scanReview(r.db.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rv, nil
}

func (r *ReviewRepository) Exists(ctx context.Context, userID, productID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND product_id = $2)
	`, userID, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check review: %w", err)
	}
	return exists, nil
}

// ListByProduct returns the product's reviews, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	list := []domain.Review{}
	if !database.ValidID(productID) {
		return list, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reviewColumns+` FROM reviews WHERE product_id = $1 ORDER BY created_at DESC, id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		list = append(list, *rv)
	}
	return list, rows.Err()
}

// RatingTotals returns the sum and count of the product's ratings.
func (r *ReviewRepository) RatingTotals(ctx context.Context, productID string) (sum, count int64, err error) {
	if !database.ValidID(productID) {
		return 0, 0, nil
	}
	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(rating), 0), COUNT(*) FROM reviews WHERE product_id = $1
	`, productID).Scan(&sum, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("summarize reviews: %w", err)
	}
	return sum, count, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	if !database.ValidID(id) {
		return errReviewNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errReviewNotFound
	}
	return nil
}
