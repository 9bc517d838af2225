package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joao-fontenele/dormdeals/internal/database"
	"github.com/joao-fontenele/dormdeals/internal/domain"
)

// CartRepository stores carts and wishlists as ordered rows per user.
type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) Items(ctx context.Context, userID string) ([]domain.CartItem, error) {
	return loadItems(ctx, r.db, userID)
}

// UpdateItems replaces the cart with whatever fn returns. The user row is
// locked for the duration so concurrent cart writes apply one after another.
func (r *CartRepository) UpdateItems(ctx context.Context, userID string, fn func([]domain.CartItem) ([]domain.CartItem, error)) ([]domain.CartItem, error) {
	var saved []domain.CartItem
	err := database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		current, err := loadItems(ctx, tx, userID)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		for i, item := range next {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO cart_items (user_id, product_id, quantity, position)
				VALUES ($1, $2, $3, $4)
			`, userID, item.ProductID, item.Quantity, i)
			if err != nil {
				return fmt.Errorf("insert cart item: %w", err)
			}
		}
		saved = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *CartRepository) Wishlist(ctx context.Context, userID string) ([]string, error) {
	return loadWishlist(ctx, r.db, userID)
}

func (r *CartRepository) UpdateWishlist(ctx context.Context, userID string, fn func([]string) ([]string, error)) ([]string, error) {
	var saved []string
	err := database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		current, err := loadWishlist(ctx, tx, userID)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM wishlist_items WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear wishlist: %w", err)
		}
		for i, productID := range next {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO wishlist_items (user_id, product_id, position)
				VALUES ($1, $2, $3)
			`, userID, productID, i)
			if err != nil {
				return fmt.Errorf("insert wishlist item: %w", err)
			}
		}
		saved = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func lockUser(ctx context.Context, q database.Querier, userID string) error {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound("User not found")
	}
	if err != nil {
		return fmt.Errorf("lock user: %w", err)
	}
	return nil
}

func loadItems(ctx context.Context, q database.Querier, userID string) ([]domain.CartItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT product_id, quantity FROM cart_items WHERE user_id = $1 ORDER BY position
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func loadWishlist(ctx context.Context, q database.Querier, userID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT product_id FROM wishlist_items WHERE user_id = $1 ORDER BY position
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
