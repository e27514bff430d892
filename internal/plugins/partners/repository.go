package partners

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/civitas-institute/civitas/internal/apperror"
)

// Repository defines the data access contract for partners.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Partner, error)
	List(ctx context.Context) ([]Partner, error)
	ListActive(ctx context.Context) ([]Partner, error)
	Create(ctx context.Context, p *Partner) error
	Update(ctx context.Context, p *Partner) error
	UpdateLogoPath(ctx context.Context, id, logoPath string) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *sql.DB
}

// NewRepository creates a new MariaDB-backed partners repository.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const partnerColumns = `id, name, website_url, logo_path, is_active, created_at, updated_at`

func (r *repository) FindByID(ctx context.Context, id string) (*Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE id = ?`
	return scanPartner(r.db.QueryRowContext(ctx, query, id))
}

func (r *repository) List(ctx context.Context) ([]Partner, error) {
	return r.queryPartners(ctx,
		`SELECT `+partnerColumns+` FROM partners ORDER BY name ASC`)
}

func (r *repository) ListActive(ctx context.Context) ([]Partner, error) {
	return r.queryPartners(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE is_active = TRUE ORDER BY name ASC`)
}

func (r *repository) Create(ctx context.Context, p *Partner) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO partners (id, name, website_url, logo_path, is_active) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.WebsiteURL, p.LogoPath, p.IsActive)
	if err != nil {
		return fmt.Errorf("inserting partner: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, p *Partner) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE partners SET name = ?, website_url = ?, is_active = ? WHERE id = ?`,
		p.Name, p.WebsiteURL, p.IsActive, p.ID)
	if err != nil {
		return fmt.Errorf("updating partner: %w", err)
	}
	return requireRowsAffected(result, "partner not found")
}

func (r *repository) UpdateLogoPath(ctx context.Context, id, logoPath string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE partners SET logo_path = ? WHERE id = ?`, logoPath, id)
	if err != nil {
		return fmt.Errorf("updating partner logo: %w", err)
	}
	return requireRowsAffected(result, "partner not found")
}

func (r *repository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE partners SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("updating active flag: %w", err)
	}
	return requireRowsAffected(result, "partner not found")
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM partners WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting partner: %w", err)
	}
	return requireRowsAffected(result, "partner not found")
}

func (r *repository) queryPartners(ctx context.Context, query string, args ...any) ([]Partner, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying partners: %w", err)
	}
	defer rows.Close()

	var partners []Partner
	for rows.Next() {
		var p Partner
		var websiteURL, logoPath sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &websiteURL, &logoPath, &p.IsActive,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning partner: %w", err)
		}
		p.WebsiteURL = websiteURL.String
		p.LogoPath = logoPath.String
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

func scanPartner(row *sql.Row) (*Partner, error) {
	p := &Partner{}
	var websiteURL, logoPath sql.NullString
	err := row.Scan(&p.ID, &p.Name, &websiteURL, &logoPath, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("partner not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning partner: %w", err)
	}
	p.WebsiteURL = websiteURL.String
	p.LogoPath = logoPath.String
	return p, nil
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
