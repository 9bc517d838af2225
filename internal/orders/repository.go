package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/joao-fontenele/dormdeals/internal/database"
	"github.com/joao-fontenele/dormdeals/internal/domain"
)

var errOrderNotFound = domain.NotFound("Order not found")

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `
	o.id, o.user_id, o.shipping_street, o.shipping_city, o.shipping_postal_code, o.shipping_country,
	o.payment_method, o.total_price, o.status, o.is_paid, o.paid_at, o.delivered_at,
	o.is_cancelled, o.cancellation_reason, o.cancellation_requested_at, o.cancelled_at,
	o.refund_status, o.refund_amount, o.refunded_at, o.created_at, o.updated_at`

func scanOrder(row database.RowScanner, extra ...any) (*domain.Order, error) {
	o := &domain.Order{Items: []domain.OrderItem{}}
	dest := []any{
		&o.ID, &o.UserID, &o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.PaymentMethod, &o.TotalPrice, &o.Status, &o.IsPaid, &o.PaidAt, &o.DeliveredAt,
		&o.IsCancelled, &o.CancellationReason, &o.CancellationRequestedAt, &o.CancelledAt,
		&o.RefundStatus, &o.RefundAmount, &o.RefundedAt, &o.CreatedAt, &o.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		order.ID = database.NewID()

		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (
				id, user_id, shipping_street, shipping_city, shipping_postal_code, shipping_country,
				payment_method, total_price, status, is_paid, paid_at,
				is_cancelled, refund_status, refund_amount, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`, order.ID, order.UserID, order.ShippingAddress.Street, order.ShippingAddress.City,
			order.ShippingAddress.PostalCode, order.ShippingAddress.Country,
			order.PaymentMethod, order.TotalPrice, order.Status, order.IsPaid, order.PaidAt,
			order.IsCancelled, order.RefundStatus, order.RefundAmount, order.CreatedAt, order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.ID = database.NewID()
			_, err = tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, position, product_id, name, image, price, quantity, refund_status, refund_amount)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, item.ID, order.ID, i, item.ProductID, item.Name, item.Image, item.Price, item.Quantity,
				item.RefundStatus, item.RefundAmount)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if !database.ValidID(id) {
		return nil, errOrderNotFound
	}
	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := loadItems(ctx, r.db, map[string]*domain.Order{order.ID: order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var list []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		list = append(list, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return r.withItems(ctx, list)
}

// ListAll returns every order, newest first, with the buyer summary attached.
func (r *OrderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.listWithUsers(ctx, `
		SELECT `+orderColumns+`, u.name, u.email
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC
	`)
}

func (r *OrderRepository) Recent(ctx context.Context, limit int) ([]domain.Order, error) {
	return r.listWithUsers(ctx, `
		SELECT `+orderColumns+`, u.name, u.email
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC
		LIMIT $1
	`, limit)
}

func (r *OrderRepository) listWithUsers(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var list []*domain.Order
	for rows.Next() {
		var name, email sql.NullString
		order, err := scanOrder(rows, &name, &email)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if name.Valid {
			order.User = &domain.UserSummary{ID: order.UserID, Name: name.String, Email: email.String}
		}
		list = append(list, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return r.withItems(ctx, list)
}

func (r *OrderRepository) withItems(ctx context.Context, list []*domain.Order) ([]domain.Order, error) {
	byID := make(map[string]*domain.Order, len(list))
	for _, o := range list {
		byID[o.ID] = o
	}
	if err := loadItems(ctx, r.db, byID); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(list))
	for _, o := range list {
		out = append(out, *o)
	}
	return out, nil
}

// loadItems fills the items of every order in byID with a single query.
func loadItems(ctx context.Context, q database.Querier, byID map[string]*domain.Order) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT order_id, id, product_id, name, image, price, quantity,
			is_cancelled, cancellation_reason, cancelled_at, refund_status, refund_amount
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ID, &item.ProductID, &item.Name, &item.Image, &item.Price, &item.Quantity,
			&item.IsCancelled, &item.CancellationReason, &item.CancelledAt, &item.RefundStatus, &item.RefundAmount); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order := byID[orderID]
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

// Update loads the order under a row lock, applies fn and writes the result
// back in the same transaction. Nothing is written when fn fails.
func (r *OrderRepository) Update(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error) {
	if !database.ValidID(id) {
		return nil, errOrderNotFound
	}

	var order *domain.Order
	err := database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		order, err = scanOrder(tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return errOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if err := loadItems(ctx, tx, map[string]*domain.Order{order.ID: order}); err != nil {
			return err
		}

		if err := fn(order); err != nil {
			return err
		}
		return saveOrder(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func saveOrder(ctx context.Context, tx *sql.Tx, o *domain.Order) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE orders SET
			total_price = $2, status = $3, is_paid = $4, paid_at = $5, delivered_at = $6,
			is_cancelled = $7, cancellation_reason = $8, cancellation_requested_at = $9, cancelled_at = $10,
			refund_status = $11, refund_amount = $12, refunded_at = $13, updated_at = $14
		WHERE id = $1
	`, o.ID, o.TotalPrice, o.Status, o.IsPaid, o.PaidAt, o.DeliveredAt,
		o.IsCancelled, o.CancellationReason, o.CancellationRequestedAt, o.CancelledAt,
		o.RefundStatus, o.RefundAmount, o.RefundedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	for _, item := range o.Items {
		_, err := tx.ExecContext(ctx, `
			UPDATE order_items SET
				is_cancelled = $2, cancellation_reason = $3, cancelled_at = $4,
				refund_status = $5, refund_amount = $6
			WHERE id = $1
		`, item.ID, item.IsCancelled, item.CancellationReason, item.CancelledAt,
			item.RefundStatus, item.RefundAmount)
		if err != nil {
			return fmt.Errorf("update order item: %w", err)
		}
	}
	return nil
}

// HasDeliveredPurchase reports whether the user has a delivered, paid order
// containing the product.
func (r *OrderRepository) HasDeliveredPurchase(ctx context.Context, userID, productID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1 AND oi.product_id = $2
				AND o.is_paid AND o.status = $3
		)
	`, userID, productID, domain.OrderStatusDelivered).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return exists, nil
}

func (r *OrderRepository) Stats(ctx context.Context) (*domain.OrderStats, error) {
	stats := &domain.OrderStats{ByStatus: map[domain.OrderStatus]int{}}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_price) FILTER (WHERE is_paid AND NOT is_cancelled), 0),
			COUNT(*) FILTER (WHERE refund_status = $1)
		FROM orders
	`, domain.RefundStatusPending).Scan(&stats.TotalOrders, &stats.Revenue, &stats.PendingRefunds)
	if err != nil {
		return nil, fmt.Errorf("order totals: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("orders by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			status domain.OrderStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus[status] = n
	}
	return stats, rows.Err()
}
