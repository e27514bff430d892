package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/civitas-institute/civitas/internal/apperror"
)

// Repository defines the data access contract for content blocks.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Block, error)
	List(ctx context.Context, section string) ([]Block, error)
	ListPublished(ctx context.Context, section string) ([]Block, error)
	Create(ctx context.Context, b *Block) error
	Update(ctx context.Context, b *Block) error
	UpdateImagePath(ctx context.Context, id, imagePath string) error
	SetPublished(ctx context.Context, id string, published bool) error
	Delete(ctx context.Context, id string) error
}

// repository is the MariaDB implementation of Repository.
type repository struct {
	db *sql.DB
}

// NewRepository creates a new MariaDB-backed content repository.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const blockColumns = `id, section, title, body_html, image_path, sort_order, is_published, created_at, updated_at`

func (r *repository) FindByID(ctx context.Context, id string) (*Block, error) {
	query := `SELECT ` + blockColumns + ` FROM content WHERE id = ?`
	return scanBlock(r.db.QueryRowContext(ctx, query, id))
}

func (r *repository) List(ctx context.Context, section string) ([]Block, error) {
	query := `SELECT ` + blockColumns + ` FROM content`
	args := []any{}
	if section != "" {
		query += ` WHERE section = ?`
		args = append(args, section)
	}
	query += ` ORDER BY section ASC, sort_order ASC`
	return r.queryBlocks(ctx, query, args...)
}

func (r *repository) ListPublished(ctx context.Context, section string) ([]Block, error) {
	query := `SELECT ` + blockColumns + ` FROM content WHERE is_published = TRUE`
	args := []any{}
	if section != "" {
		query += ` AND section = ?`
		args = append(args, section)
	}
	query += ` ORDER BY sort_order ASC`
	return r.queryBlocks(ctx, query, args...)
}

func (r *repository) Create(ctx context.Context, b *Block) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO content (id, section, title, body_html, image_path, sort_order, is_published)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Section, b.Title, b.BodyHTML, b.ImagePath, b.SortOrder, b.IsPublished)
	if err != nil {
		return fmt.Errorf("inserting content block: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, b *Block) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE content SET section = ?, title = ?, body_html = ?, sort_order = ?, is_published = ?
		 WHERE id = ?`,
		b.Section, b.Title, b.BodyHTML, b.SortOrder, b.IsPublished, b.ID)
	if err != nil {
		return fmt.Errorf("updating content block: %w", err)
	}
	return requireRowsAffected(result, "content block not found")
}

func (r *repository) UpdateImagePath(ctx context.Context, id, imagePath string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE content SET image_path = ? WHERE id = ?`, imagePath, id)
	if err != nil {
		return fmt.Errorf("updating content image: %w", err)
	}
	return requireRowsAffected(result, "content block not found")
}

func (r *repository) SetPublished(ctx context.Context, id string, published bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE content SET is_published = ? WHERE id = ?`, published, id)
	if err != nil {
		return fmt.Errorf("updating publish flag: %w", err)
	}
	return requireRowsAffected(result, "content block not found")
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM content WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting content block: %w", err)
	}
	return requireRowsAffected(result, "content block not found")
}

func (r *repository) queryBlocks(ctx context.Context, query string, args ...any) ([]Block, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying content blocks: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		var b Block
		var imagePath sql.NullString
		if err := rows.Scan(&b.ID, &b.Section, &b.Title, &b.BodyHTML, &imagePath,
			&b.SortOrder, &b.IsPublished, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning content block: %w", err)
		}
		b.ImagePath = imagePath.String
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func scanBlock(row *sql.Row) (*Block, error) {
	b := &Block{}
	var imagePath sql.NullString
	err := row.Scan(&b.ID, &b.Section, &b.Title, &b.BodyHTML, &imagePath,
		&b.SortOrder, &b.IsPublished, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("content block not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning content block: %w", err)
	}
	b.ImagePath = imagePath.String
	return b, nil
}

// requireRowsAffected converts a zero-row write into a 404. This is what
// makes repeated deletes idempotent at the API level.
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
