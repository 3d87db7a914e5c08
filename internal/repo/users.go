package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/sales-api/internal/auth"
)

// UsersRepo persists user accounts in PostgreSQL.
type UsersRepo struct {
	Pool *pgxpool.Pool
}

var _ auth.Store = (*UsersRepo)(nil)

// CreateUser stores a new user row. Duplicate emails surface as a PgError
// with SQLSTATE 23505 for the auth service to translate.
func (r *UsersRepo) CreateUser(ctx context.Context, u auth.User) (auth.User, error) {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return auth.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetUserByEmail reads one user row by normalized email.
func (r *UsersRepo) GetUserByEmail(ctx context.Context, email string) (auth.User, error) {
	var u auth.User
	err := r.Pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return auth.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetUserByID reads one user row by identifier.
func (r *UsersRepo) GetUserByID(ctx context.Context, id uuid.UUID) (auth.User, error) {
	var u auth.User
	err := r.Pool.QueryRow(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return auth.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}
