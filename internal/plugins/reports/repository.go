package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/civitas-institute/civitas/internal/apperror"
)

// perPage is the listing page size.
const perPage = 20

// Repository defines the data access contract for reports.
type Repository interface {
	FindByID(ctx context.Context, id string) (*Report, error)
	List(ctx context.Context, opts ListOptions) ([]Report, int, error)
	ListPublished(ctx context.Context, opts ListOptions) ([]Report, int, error)
	Create(ctx context.Context, r *Report) error
	Update(ctx context.Context, r *Report) error
	UpdateFilePath(ctx context.Context, id, filePath string) error
	SetPublished(ctx context.Context, id string, published bool) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db *sql.DB
}

// NewRepository creates a new MariaDB-backed reports repository.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const reportColumns = `r.id, r.title, r.summary, r.body_html, r.department_id, r.file_path,
	r.is_published, r.published_at, r.created_at, r.updated_at, COALESCE(d.name, '')`

const reportFrom = ` FROM reports r LEFT JOIN departments d ON d.id = r.department_id`

func (r *repository) FindByID(ctx context.Context, id string) (*Report, error) {
	query := `SELECT ` + reportColumns + reportFrom + ` WHERE r.id = ?`
	rep, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *repository) List(ctx context.Context, opts ListOptions) ([]Report, int, error) {
	return r.list(ctx, opts, false)
}

func (r *repository) ListPublished(ctx context.Context, opts ListOptions) ([]Report, int, error) {
	return r.list(ctx, opts, true)
}

func (r *repository) list(ctx context.Context, opts ListOptions, publishedOnly bool) ([]Report, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if publishedOnly {
		where += ` AND r.is_published = TRUE`
	}
	if opts.DepartmentID != "" {
		where += ` AND r.department_id = ?`
		args = append(args, opts.DepartmentID)
	}

	var total int
	countQuery := `SELECT COUNT(*)` + reportFrom + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting reports: %w", err)
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	order := ` ORDER BY r.created_at DESC`
	if publishedOnly {
		order = ` ORDER BY r.published_at DESC`
	}
	query := `SELECT ` + reportColumns + reportFrom + where + order + ` LIMIT ? OFFSET ?`
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		rep, err := scanReportRows(rows)
		if err != nil {
			return nil, 0, err
		}
		reports = append(reports, *rep)
	}
	return reports, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, rep *Report) error {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, title, summary, body_html, department_id) VALUES (?, ?, ?, ?, ?)`,
		rep.ID, rep.Title, rep.Summary, rep.BodyHTML, rep.DepartmentID)
	if err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, rep *Report) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reports SET title = ?, summary = ?, body_html = ?, department_id = ? WHERE id = ?`,
		rep.Title, rep.Summary, rep.BodyHTML, rep.DepartmentID, rep.ID)
	if err != nil {
		return fmt.Errorf("updating report: %w", err)
	}
	return requireRowsAffected(result, "report not found")
}

func (r *repository) UpdateFilePath(ctx context.Context, id, filePath string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reports SET file_path = ? WHERE id = ?`, filePath, id)
	if err != nil {
		return fmt.Errorf("updating report file: %w", err)
	}
	return requireRowsAffected(result, "report not found")
}

// SetPublished flips the publish flag. published_at is stamped on the
// first publish only, so the public ordering is stable across
// unpublish/republish cycles.
func (r *repository) SetPublished(ctx context.Context, id string, published bool) error {
	query := `UPDATE reports SET is_published = ?,
		published_at = CASE WHEN ? AND published_at IS NULL THEN CURRENT_TIMESTAMP ELSE published_at END
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, published, published, id)
	if err != nil {
		return fmt.Errorf("updating publish flag: %w", err)
	}
	return requireRowsAffected(result, "report not found")
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting report: %w", err)
	}
	return requireRowsAffected(result, "report not found")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReportInto(s rowScanner) (*Report, error) {
	rep := &Report{}
	var filePath sql.NullString
	err := s.Scan(&rep.ID, &rep.Title, &rep.Summary, &rep.BodyHTML, &rep.DepartmentID,
		&filePath, &rep.IsPublished, &rep.PublishedAt, &rep.CreatedAt, &rep.UpdatedAt,
		&rep.DepartmentName)
	if err != nil {
		return nil, err
	}
	rep.FilePath = filePath.String
	return rep, nil
}

func scanReport(row *sql.Row) (*Report, error) {
	rep, err := scanReportInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("report not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning report: %w", err)
	}
	return rep, nil
}

func scanReportRows(rows *sql.Rows) (*Report, error) {
	rep, err := scanReportInto(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning report: %w", err)
	}
	return rep, nil
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
