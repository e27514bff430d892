package opportunities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/civitas-institute/civitas/internal/apperror"
)

// Repository defines the data access contract for opportunities.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Opportunity, error)
	List(ctx context.Context) ([]Opportunity, error)

	// ListOpen returns active listings whose deadline has not passed.
	ListOpen(ctx context.Context) ([]Opportunity, error)

	Create(ctx context.Context, o *Opportunity) error
	Update(ctx context.Context, o *Opportunity) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *sql.DB
}

// NewRepository creates a new MariaDB-backed opportunities repository.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const opportunityColumns = `id, title, description_html, location, closes_at, is_active, created_at, updated_at`

func (r *repository) FindByID(ctx context.Context, id string) (*Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE id = ?`
	return scanOpportunity(r.db.QueryRowContext(ctx, query, id))
}

func (r *repository) List(ctx context.Context) ([]Opportunity, error) {
	return r.queryOpportunities(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities ORDER BY created_at DESC`)
}

func (r *repository) ListOpen(ctx context.Context) ([]Opportunity, error) {
	return r.queryOpportunities(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities
		 WHERE is_active = TRUE AND (closes_at IS NULL OR closes_at > CURRENT_TIMESTAMP)
		 ORDER BY created_at DESC`)
}

func (r *repository) Create(ctx context.Context, o *Opportunity) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO opportunities (id, title, description_html, location, closes_at, is_active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.Title, o.DescriptionHTML, o.Location, o.ClosesAt, o.IsActive)
	if err != nil {
		return fmt.Errorf("inserting opportunity: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, o *Opportunity) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE opportunities SET title = ?, description_html = ?, location = ?, closes_at = ?, is_active = ?
		 WHERE id = ?`,
		o.Title, o.DescriptionHTML, o.Location, o.ClosesAt, o.IsActive, o.ID)
	if err != nil {
		return fmt.Errorf("updating opportunity: %w", err)
	}
	return requireRowsAffected(result, "opportunity not found")
}

func (r *repository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE opportunities SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("updating active flag: %w", err)
	}
	return requireRowsAffected(result, "opportunity not found")
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM opportunities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting opportunity: %w", err)
	}
	return requireRowsAffected(result, "opportunity not found")
}

func (r *repository) queryOpportunities(ctx context.Context, query string, args ...any) ([]Opportunity, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying opportunities: %w", err)
	}
	defer rows.Close()

	var opportunities []Opportunity
	for rows.Next() {
		var o Opportunity
		var location sql.NullString
		if err := rows.Scan(&o.ID, &o.Title, &o.DescriptionHTML, &location, &o.ClosesAt,
			&o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning opportunity: %w", err)
		}
		o.Location = location.String
		opportunities = append(opportunities, o)
	}
	return opportunities, rows.Err()
}

func scanOpportunity(row *sql.Row) (*Opportunity, error) {
	o := &Opportunity{}
	var location sql.NullString
	err := row.Scan(&o.ID, &o.Title, &o.DescriptionHTML, &location, &o.ClosesAt,
		&o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("opportunity not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning opportunity: %w", err)
	}
	o.Location = location.String
	return o, nil
}

func requireRowsAffected(result sql.Result, message string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NewNotFound(message)
	}
	return nil
}
