package departments

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/audited"
	"github.com/civitas-institute/civitas/internal/events"
	"github.com/civitas-institute/civitas/internal/sanitize"
)

const departmentsTable = "departments"

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Service handles department business logic.
type Service struct {
	repo     Repository
	recorder audited.Recorder
	pub      events.Publisher
	logger   *slog.Logger
}

// NewService creates a new departments service.
func NewService(repo Repository, recorder audited.Recorder, pub events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		pub:      pub,
		logger:   logger.With("plugin", "departments"),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Department, error) {
	return s.repo.FindByID(ctx, id)
}

// GetBySlug serves the public department page lookup.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Department, error) {
	d, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !d.IsPublic {
		// Private departments do not exist as far as the public site knows.
		return nil, apperror.NewNotFound("department not found")
	}
	return d, nil
}

func (s *Service) List(ctx context.Context) ([]Department, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListPublic(ctx context.Context) ([]Department, error) {
	return s.repo.ListPublic(ctx)
}

// Create stores a new department as an audited mutation.
func (s *Service) Create(ctx context.Context, input UpsertInput) (*Department, error) {
	dept, err := departmentFromInput(input)
	if err != nil {
		return nil, err
	}

	created, err := audited.Run(ctx, s.recorder, audited.Mutation[*Department]{
		Kind:    audited.KindCreate,
		Table:   departmentsTable,
		ActorID: input.ActorID,
		Apply: func(ctx context.Context) (*Department, error) {
			if err := s.repo.Create(ctx, dept); err != nil {
				return nil, err
			}
			return s.repo.FindByID(ctx, dept.ID)
		},
		ResolveID: func(d *Department) string { return d.ID },
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ctx, events.Change{
		Table:    departmentsTable,
		Action:   audited.ActionTag(departmentsTable, audited.KindCreate),
		RecordID: created.ID,
	})
	return created, nil
}

// Update stores changes to a department as an audited mutation.
func (s *Service) Update(ctx context.Context, id string, input UpsertInput) (*Department, error) {
	dept, err := departmentFromInput(input)
	if err != nil {
		return nil, err
	}
	dept.ID = id

	var oldValues map[string]any
	if prev, err := s.repo.FindByID(ctx, id); err == nil {
		oldValues = audited.Snapshot(prev)
	}

	updated, err := audited.Run(ctx, s.recorder, audited.Mutation[*Department]{
		Kind:      audited.KindUpdate,
		Table:     departmentsTable,
		RecordID:  id,
		ActorID:   input.ActorID,
		OldValues: oldValues,
		Apply: func(ctx context.Context) (*Department, error) {
			if err := s.repo.Update(ctx, dept); err != nil {
				return nil, err
			}
			return s.repo.FindByID(ctx, id)
		},
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ctx, events.Change{
		Table:    departmentsTable,
		Action:   audited.ActionTag(departmentsTable, audited.KindUpdate),
		RecordID: id,
	})
	return updated, nil
}

// Delete removes a department as an audited mutation with a pre-read
// snapshot. Reports filed under it keep existing with a cleared
// department reference.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	var oldValues map[string]any
	if prev, err := s.repo.FindByID(ctx, id); err == nil {
		oldValues = audited.Snapshot(prev)
	}

	_, err := audited.Run(ctx, s.recorder, audited.Mutation[struct{}]{
		Kind:      audited.KindDelete,
		Table:     departmentsTable,
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

	s.pub.Publish(ctx, events.Change{
		Table:    departmentsTable,
		Action:   audited.ActionTag(departmentsTable, audited.KindDelete),
		RecordID: id,
	})
	return nil
}

func departmentFromInput(input UpsertInput) (*Department, error) {
	name := strings.TrimSpace(input.Name)
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if name == "" {
		return nil, apperror.NewBadRequest("name is required")
	}
	if slug == "" {
		slug = slugify(name)
	}
	if !slugPattern.MatchString(slug) {
		return nil, apperror.NewBadRequest("slug must be lowercase letters, digits, and hyphens")
	}
	return &Department{
		Name:        name,
		Slug:        slug,
		Description: sanitize.HTML(input.Description),
		IsPublic:    input.IsPublic,
	}, nil
}

// slugify derives a URL slug from a department name.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
