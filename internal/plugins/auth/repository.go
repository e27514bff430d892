package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/civitas-institute/civitas/internal/apperror"
)

// UserRepository defines the data access contract for panel users.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)

	// UpdateLastLogin stamps last_login_at with the current time.
	UpdateLastLogin(ctx context.Context, id string) error
}

// userRepository is the MariaDB implementation of UserRepository.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new MariaDB-backed user repository.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// userColumns is the SELECT column list for users queries.
const userColumns = `id, email, display_name, password_hash, is_disabled, created_at, last_login_at`

// FindByID retrieves a user by their ID.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

// FindByEmail retrieves a user by their lowercased email.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// UpdateLastLogin stamps last_login_at with the current time.
func (r *userRepository) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// scanUser scans a single user row.
func (r *userRepository) scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash,
		&u.IsDisabled, &u.CreatedAt, &u.LastLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return u, nil
}
