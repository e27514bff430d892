package roles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/civitas-institute/civitas/internal/apperror"
)

// Repository defines the data access contract for role assignments.
type Repository interface {
	// FindByUserID returns the user's role assignment. user_roles carries a
	// UNIQUE(user_id) constraint; the ORDER BY is a deterministic tie-break
	// for databases migrated before the constraint existed.
	FindByUserID(ctx context.Context, userID string) (*Assignment, error)

	// FindUserIDByEmail resolves a user's ID from their email.
	FindUserIDByEmail(ctx context.Context, email string) (string, error)

	// Upsert writes the user's role, replacing any existing assignment in a
	// single statement so concurrent first assignments cannot collide on the
	// UNIQUE(user_id) key. It reports whether a row was created or an
	// existing one updated.
	Upsert(ctx context.Context, userID string, role Role) (AssignOutcome, error)

	// Delete removes the user's role assignment.
	Delete(ctx context.Context, userID string) (*Assignment, error)

	// List returns all assignments joined with user email and name.
	List(ctx context.Context) ([]Assignment, error)
}

// repository is the MariaDB implementation of Repository.
type repository struct {
	db *sql.DB
}

// NewRepository creates a new MariaDB-backed roles repository.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByUserID(ctx context.Context, userID string) (*Assignment, error) {
	query := `SELECT id, user_id, role, assigned_at FROM user_roles
		WHERE user_id = ? ORDER BY assigned_at DESC LIMIT 1`

	a := &Assignment{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&a.ID, &a.UserID, &a.Role, &a.AssignedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("no role assigned")
	}
	if err != nil {
		return nil, fmt.Errorf("querying role: %w", err)
	}
	return a, nil
}

func (r *repository) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = ?`, email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperror.NewNotFound("user not found")
	}
	if err != nil {
		return "", fmt.Errorf("querying user by email: %w", err)
	}
	return id, nil
}

func (r *repository) Upsert(ctx context.Context, userID string, role Role) (AssignOutcome, error) {
	// ON DUPLICATE KEY UPDATE reports 1 affected row for an insert and 2 for
	// an update of an existing row.
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (id, user_id, role) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE role = VALUES(role), assigned_at = CURRENT_TIMESTAMP`,
		uuid.NewString(), userID, role)
	if err != nil {
		return "", fmt.Errorf("upserting role: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("checking rows affected: %w", err)
	}
	if rows >= 2 {
		return OutcomeUpdated, nil
	}
	return OutcomeCreated, nil
}

func (r *repository) Delete(ctx context.Context, userID string) (*Assignment, error) {
	prev, err := r.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("deleting role: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return nil, apperror.NewNotFound("no role assigned")
	}
	return prev, nil
}

func (r *repository) List(ctx context.Context) ([]Assignment, error) {
	query := `SELECT ur.id, ur.user_id, ur.role, ur.assigned_at, u.email, u.display_name
		FROM user_roles ur
		JOIN users u ON u.id = ur.user_id
		ORDER BY u.email ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.Role, &a.AssignedAt, &a.UserEmail, &a.UserName); err != nil {
			return nil, fmt.Errorf("scanning role row: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}
