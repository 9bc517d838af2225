package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joao-fontenele/dormdeals/internal/database"
	"github.com/joao-fontenele/dormdeals/internal/domain"
)

var (
	errUserNotFound = domain.NotFound("User not found")
	errUserExists   = domain.Conflict("User already exists")
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, name, email, password_hash, phone, date_of_birth, gender,
	address_street, address_city, address_postal_code, address_country,
	profile_picture, newsletter, notifications, is_admin, created_at, updated_at`

func scanUser(row database.RowScanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.DateOfBirth, &u.Gender,
		&u.Address.Street, &u.Address.City, &u.Address.PostalCode, &u.Address.Country,
		&u.ProfilePicture, &u.Preferences.Newsletter, &u.Preferences.Notifications, &u.IsAdmin,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	u.ID = database.NewID()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, name, email, password_hash, phone, date_of_birth, gender,
			address_street, address_city, address_postal_code, address_country,
			profile_picture, newsletter, notifications, is_admin, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Phone, u.DateOfBirth, u.Gender,
		u.Address.Street, u.Address.City, u.Address.PostalCode, u.Address.Country,
		u.ProfilePicture, u.Preferences.Newsletter, u.Preferences.Notifications, u.IsAdmin,
		u.CreatedAt, u.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return errUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !database.ValidID(id) {
		return nil, errUserNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			name = $2, email = $3, password_hash = $4, phone = $5, date_of_birth = $6, gender = $7,
			address_street = $8, address_city = $9, address_postal_code = $10, address_country = $11,
			profile_picture = $12, newsletter = $13, notifications = $14, is_admin = $15, updated_at = $16
		WHERE id = $1
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Phone, u.DateOfBirth, u.Gender,
		u.Address.Street, u.Address.City, u.Address.PostalCode, u.Address.Country,
		u.ProfilePicture, u.Preferences.Newsletter, u.Preferences.Notifications, u.IsAdmin, u.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return errUserExists
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return errUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	list := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, *u)
	}
	return list, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// AdminIDs lists the ids of every admin account.
func (r *UserRepository) AdminIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users WHERE is_admin ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
