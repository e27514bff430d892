package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/civitas-institute/civitas/internal/apperror"
)

// perPage is the number of audit entries shown per page in the activity feed.
const perPage = 50

// maxRecordHistoryEntries caps the number of history entries returned for a
// single record to prevent unbounded result sets.
const maxRecordHistoryEntries = 100

// Service handles business logic for the audit trail. It validates entries,
// enforces paging limits, and delegates persistence to the repository.
type Service interface {
	// Record appends an audit entry. Callers inside the audited-mutation
	// wrapper treat failures as non-fatal: errors are returned for logging
	// but must never roll back the already-committed primary mutation.
	Record(ctx context.Context, entry *Entry) error

	// List returns a paginated activity feed, optionally filtered by table.
	// Returns entries, total count, and any error.
	List(ctx context.Context, opts ListOptions) ([]Entry, int, error)

	// RecordHistory returns the recent change history for a single record.
	RecordHistory(ctx context.Context, table, recordID string) ([]Entry, error)
}

// service implements Service.
type service struct {
	repo Repository
}

// NewService creates a new audit service with the given repository.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Record validates and persists an audit entry. Missing required fields
// cause a validation error before the insert is attempted.
func (s *service) Record(ctx context.Context, entry *Entry) error {
	if entry.ActorID == "" {
		return apperror.NewBadRequest("actor ID is required for audit entry")
	}
	if entry.Action == "" {
		return apperror.NewBadRequest("action is required for audit entry")
	}
	if entry.TableName == "" {
		return apperror.NewBadRequest("table name is required for audit entry")
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		slog.Error("failed to write audit entry",
			slog.String("action", entry.Action),
			slog.String("table", entry.TableName),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("writing audit entry: %w", err))
	}

	return nil
}

// List returns the paginated activity feed. Pages are 1-indexed; invalid
// page numbers are clamped to 1.
func (s *service) List(ctx context.Context, opts ListOptions) ([]Entry, int, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}

	offset := (page - 1) * perPage
	entries, total, err := s.repo.List(ctx, opts.Table, perPage, offset)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing audit feed: %w", err))
	}

	return entries, total, nil
}

// RecordHistory returns the recent change history for a single record.
// Limited to maxRecordHistoryEntries to prevent excessively large responses.
func (s *service) RecordHistory(ctx context.Context, table, recordID string) ([]Entry, error) {
	if table == "" || recordID == "" {
		return nil, apperror.NewBadRequest("table and record ID are required")
	}

	entries, err := s.repo.ListByRecord(ctx, table, recordID, maxRecordHistoryEntries)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing record history: %w", err))
	}

	return entries, nil
}
