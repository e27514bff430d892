package reports

import (
	"context"
	"log/slog"
	"strings"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/audited"
	"github.com/civitas-institute/civitas/internal/events"
	"github.com/civitas-institute/civitas/internal/sanitize"
	"github.com/civitas-institute/civitas/internal/storage"
)

const reportsTable = "reports"

// documentMIMEs are the content types accepted for report attachments.
var documentMIMEs = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

// Service handles report business logic.
type Service struct {
	repo     Repository
	recorder audited.Recorder
	pub      events.Publisher
	store    storage.ObjectStore
	logger   *slog.Logger
}

// NewService creates a new reports service.
func NewService(repo Repository, recorder audited.Recorder, pub events.Publisher, store storage.ObjectStore, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		pub:      pub,
		store:    store,
		logger:   logger.With("plugin", "reports"),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Report, error) {
	return s.repo.FindByID(ctx, id)
}

// GetPublished serves a single report to the public site. Unpublished
// reports read as 404.
func (s *Service) GetPublished(ctx context.Context, id string) (*Report, error) {
	rep, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rep.IsPublished {
		return nil, apperror.NewNotFound("report not found")
	}
	return rep, nil
}

func (s *Service) List(ctx context.Context, opts ListOptions) ([]Report, int, error) {
	return s.repo.List(ctx, opts)
}

func (s *Service) ListPublished(ctx context.Context, opts ListOptions) ([]Report, int, error) {
	return s.repo.ListPublished(ctx, opts)
}

// Create stores a new draft report as an audited mutation.
func (s *Service) Create(ctx context.Context, input UpsertInput) (*Report, error) {
	rep, err := reportFromInput(input)
	if err != nil {
		return nil, err
	}

	created, err := audited.Run(ctx, s.recorder, audited.Mutation[*Report]{
		Kind:    audited.KindCreate,
		Table:   reportsTable,
		ActorID: input.ActorID,
		Apply: func(ctx context.Context) (*Report, error) {
			if err := s.repo.Create(ctx, rep); err != nil {
				return nil, err
			}
			return s.repo.FindByID(ctx, rep.ID)
		},
		ResolveID: func(r *Report) string { return r.ID },
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, audited.ActionTag(reportsTable, audited.KindCreate), created.ID)
	return created, nil
}

// Update stores changes to a report as an audited mutation.
func (s *Service) Update(ctx context.Context, id string, input UpsertInput) (*Report, error) {
	rep, err := reportFromInput(input)
	if err != nil {
		return nil, err
	}
	rep.ID = id

	var oldValues map[string]any
	if prev, err := s.repo.FindByID(ctx, id); err == nil {
		oldValues = audited.Snapshot(prev)
	}

	updated, err := audited.Run(ctx, s.recorder, audited.Mutation[*Report]{
		Kind:      audited.KindUpdate,
		Table:     reportsTable,
		RecordID:  id,
		ActorID:   input.ActorID,
		OldValues: oldValues,
		Apply: func(ctx context.Context) (*Report, error) {
			if err := s.repo.Update(ctx, rep); err != nil {
				return nil, err
			}
			return s.repo.FindByID(ctx, id)
		},
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, audited.ActionTag(reportsTable, audited.KindUpdate), id)
	return updated, nil
}

// SetPublished flips the publish flag as an audited mutation.
func (s *Service) SetPublished(ctx context.Context, id string, published bool, actorID string) error {
	var oldValues map[string]any
	if prev, err := s.repo.FindByID(ctx, id); err == nil {
		oldValues = audited.Snapshot(prev)
	}

	_, err := audited.Run(ctx, s.recorder, audited.Mutation[struct{}]{
		Kind:      audited.KindUpdate,
		Table:     reportsTable,
		RecordID:  id,
		ActorID:   actorID,
		OldValues: oldValues,
		NewValues: map[string]any{"is_published": published},
		Apply: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.repo.SetPublished(ctx, id, published)
		},
	})
	if err != nil {
		return err
	}

	s.publish(ctx, audited.ActionTag(reportsTable, audited.KindUpdate), id)
	return nil
}

// Delete removes a report as an audited mutation with a pre-read snapshot,
// then best-effort removes its attached document.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	var oldValues map[string]any
	var filePath string
	if prev, err := s.repo.FindByID(ctx, id); err == nil {
		oldValues = audited.Snapshot(prev)
		filePath = prev.FilePath
	}

	_, err := audited.Run(ctx, s.recorder, audited.Mutation[struct{}]{
		Kind:      audited.KindDelete,
		Table:     reportsTable,
		RecordID:  id,
		ActorID:   actorID,
		OldValues: oldValues,
		Apply: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.repo.Delete(ctx, id)
		},
	})
	if err != nil {
		return err
	}

	if filePath != "" {
		if err := s.store.Remove(ctx, storage.BucketReports, filePath); err != nil {
			s.logger.Warn("removing orphaned document failed", "report_id", id, "error", err)
		}
	}

	s.publish(ctx, audited.ActionTag(reportsTable, audited.KindDelete), id)
	return nil
}

// UploadDocument validates and stores a report's attachment. Validation
// happens before the store is touched.
func (s *Service) UploadDocument(ctx context.Context, input UploadDocumentInput) (*Report, error) {
	if err := storage.Validate(input.Data, input.ContentType, 0); err != nil {
		return nil, err
	}
	if !documentMIMEs[input.ContentType] {
		return nil, apperror.NewValidation("report attachments must be PDF, Word, or plain text")
	}

	prev, err := s.repo.FindByID(ctx, input.ReportID)
	if err != nil {
		return nil, err
	}

	obj, err := s.store.Put(ctx, storage.BucketReports, input.FileName, input.Data, input.ContentType)
	if err != nil {
		return nil, err
	}

	updated, err := audited.Run(ctx, s.recorder, audited.Mutation[*Report]{
		Kind:      audited.KindUpdate,
		Table:     reportsTable,
		RecordID:  input.ReportID,
		ActorID:   input.ActorID,
		Action:    "reports_upload",
		OldValues: audited.Snapshot(prev),
		NewValues: map[string]any{"file_path": obj.Key},
		Apply: func(ctx context.Context) (*Report, error) {
			if err := s.repo.UpdateFilePath(ctx, input.ReportID, obj.Key); err != nil {
				return nil, err
			}
			return s.repo.FindByID(ctx, input.ReportID)
		},
	})
	if err != nil {
		s.store.Remove(ctx, storage.BucketReports, obj.Key)
		return nil, err
	}

	if prev.FilePath != "" && prev.FilePath != obj.Key {
		if err := s.store.Remove(ctx, storage.BucketReports, prev.FilePath); err != nil {
			s.logger.Warn("removing replaced document failed", "report_id", input.ReportID, "error", err)
		}
	}

	s.publish(ctx, "reports_upload", input.ReportID)
	return updated, nil
}

// DocumentURL resolves the public URL for a report's attachment.
func (s *Service) DocumentURL(rep *Report) string {
	if rep.FilePath == "" {
		return ""
	}
	return s.store.PublicURL(storage.BucketReports, rep.FilePath)
}

func (s *Service) publish(ctx context.Context, action, recordID string) {
	s.pub.Publish(ctx, events.Change{Table: reportsTable, Action: action, RecordID: recordID})
}

func reportFromInput(input UpsertInput) (*Report, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperror.NewBadRequest("title is required")
	}

	deptID := input.DepartmentID
	if deptID != nil && strings.TrimSpace(*deptID) == "" {
		deptID = nil
	}

	return &Report{
		Title:        title,
		Summary:      strings.TrimSpace(input.Summary),
		BodyHTML:     sanitize.HTML(input.BodyHTML),
		DepartmentID: deptID,
	}, nil
}
