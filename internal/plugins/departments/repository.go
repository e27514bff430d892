package departments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/civitas-institute/civitas/internal/apperror"
)

// Repository defines the data access contract for departments.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Department, error)
	FindBySlug(ctx context.Context, slug string) (*Department, error)
	List(ctx context.Context) ([]Department, error)
	ListPublic(ctx context.Context) ([]Department, error)
	Create(ctx context.Context, d *Department) error
	Update(ctx context.Context, d *Department) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *sql.DB
}

// NewRepository creates a new MariaDB-backed departments repository.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const departmentColumns = `id, name, slug, description, is_public, created_at, updated_at`

func (r *repository) FindByID(ctx context.Context, id string) (*Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE id = ?`
	return scanDepartment(r.db.QueryRowContext(ctx, query, id))
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM departments WHERE slug = ?`
	return scanDepartment(r.db.QueryRowContext(ctx, query, slug))
}

func (r *repository) List(ctx context.Context) ([]Department, error) {
	return r.queryDepartments(ctx,
		`SELECT `+departmentColumns+` FROM departments ORDER BY name ASC`)
}

func (r *repository) ListPublic(ctx context.Context) ([]Department, error) {
	return r.queryDepartments(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE is_public = TRUE ORDER BY name ASC`)
}

func (r *repository) Create(ctx context.Context, d *Department) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO departments (id, name, slug, description, is_public) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Slug, d.Description, d.IsPublic)
	if err != nil {
		return translateDuplicate(err, "a department with this slug already exists",
			"inserting department")
	}
	return nil
}

func (r *repository) Update(ctx context.Context, d *Department) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE departments SET name = ?, slug = ?, description = ?, is_public = ? WHERE id = ?`,
		d.Name, d.Slug, d.Description, d.IsPublic, d.ID)
	if err != nil {
		return translateDuplicate(err, "a department with this slug already exists",
			"updating department")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NewNotFound("department not found")
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id = ?`, id)
	if err != nil {
		// Reports reference departments; the FK is ON DELETE SET NULL so
		// this only fires if the schema drifts.
		return fmt.Errorf("deleting department: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NewNotFound("department not found")
	}
	return nil
}

func (r *repository) queryDepartments(ctx context.Context, query string, args ...any) ([]Department, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying departments: %w", err)
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Slug, &d.Description, &d.IsPublic,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning department: %w", err)
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

func scanDepartment(row *sql.Row) (*Department, error) {
	d := &Department{}
	err := row.Scan(&d.ID, &d.Name, &d.Slug, &d.Description, &d.IsPublic,
		&d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("department not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning department: %w", err)
	}
	return d, nil
}

// translateDuplicate maps a MySQL duplicate-key error (1062) to a 409.
func translateDuplicate(err error, message, op string) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return apperror.NewConflict(message)
	}
	return fmt.Errorf("%s: %w", op, err)
}
