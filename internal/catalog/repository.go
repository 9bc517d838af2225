package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/joao-fontenele/dormdeals/internal/database"
	"github.com/joao-fontenele/dormdeals/internal/domain"
)

var errProductNotFound = domain.NotFound("Product not found")

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `
	id, name, description, price, brand, category, image,
	spec_processor, spec_ram, spec_storage, spec_screen, spec_battery, spec_graphics,
	usage, stock, created_at, updated_at`

func scanProduct(row database.RowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Brand, &p.Category, &p.Image,
		&p.Specs.Processor, &p.Specs.RAM, &p.Specs.Storage, &p.Specs.Screen, &p.Specs.Battery, &p.Specs.Graphics,
		pq.Array(&p.Usage), &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.Usage == nil {
		p.Usage = []string{}
	}
	return p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	p.ID = database.NewID()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, description, price, brand, category, image,
			spec_processor, spec_ram, spec_storage, spec_screen, spec_battery, spec_graphics,
			usage, stock, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, p.ID, p.Name, p.Description, p.Price, p.Brand, p.Category, p.Image,
		p.Specs.Processor, p.Specs.RAM, p.Specs.Storage, p.Specs.Screen, p.Specs.Battery, p.Specs.Graphics,
		pq.Array(p.Usage), p.Stock, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if !database.ValidID(id) {
		return nil, errProductNotFound
	}
	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetMany returns the products that exist among ids, keyed by id.
func (r *ProductRepository) GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if database.ValidID(id) {
			valid = append(valid, id)
		}
	}
	out := make(map[string]domain.Product, len(valid))
	if len(valid) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, pq.Array(valid))
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = *p
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *ProductRepository) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		p := arg("%" + likeEscaper.Replace(kw) + "%")
		where = append(where, "(name ILIKE "+p+" OR brand ILIKE "+p+" OR description ILIKE "+p+")")
	}
	if f.Category != "" {
		where = append(where, "category = "+arg(f.Category))
	}
	if f.Brand != "" {
		where = append(where, "brand ILIKE "+arg(likeEscaper.Replace(f.Brand)))
	}
	if f.Usage != "" {
		where = append(where, arg(f.Usage)+" = ANY(usage)")
	}
	if f.MinPrice != nil {
		where = append(where, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "price <= "+arg(*f.MaxPrice))
	}
	if f.InStock {
		where = append(where, "stock > 0")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + orderBy(f.Sort)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func orderBy(s domain.ProductSort) string {
	switch s {
	case domain.SortPriceAsc:
		return "price ASC, id"
	case domain.SortPriceDesc:
		return "price DESC, id"
	case domain.SortName:
		return "name ASC, id"
	default:
		return "created_at DESC, id"
	}
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products SET
			name = $2, description = $3, price = $4, brand = $5, category = $6, image = $7,
			spec_processor = $8, spec_ram = $9, spec_storage = $10, spec_screen = $11,
			spec_battery = $12, spec_graphics = $13, usage = $14, stock = $15, updated_at = $16
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Price, p.Brand, p.Category, p.Image,
		p.Specs.Processor, p.Specs.RAM, p.Specs.Storage, p.Specs.Screen, p.Specs.Battery, p.Specs.Graphics,
		pq.Array(p.Usage), p.Stock, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return errProductNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if !database.ValidID(id) {
		return errProductNotFound
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return errProductNotFound
	}
	return nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// LowStock lists products whose stock is below threshold, lowest first.
func (r *ProductRepository) LowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE stock < $1
		ORDER BY stock ASC, name
	`, threshold)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}
