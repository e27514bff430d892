package opportunities

import (
	"context"
	"log/slog"
	"strings"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/audited"
	"github.com/civitas-institute/civitas/internal/events"
	"github.com/civitas-institute/civitas/internal/sanitize"
)

const opportunitiesTable = "opportunities"

// Service handles opportunity business logic.
type Service struct {
	repo     Repository
	recorder audited.Recorder
	pub      events.Publisher
	logger   *slog.Logger
}

// NewService creates a new opportunities service.
func NewService(repo Repository, recorder audited.Recorder, pub events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		pub:      pub,
		logger:   logger.With("plugin", "opportunities"),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Opportunity, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Opportunity, error) {
	return s.repo.List(ctx)
}

// ListOpen returns the listings shown on the public careers page.
func (s *Service) ListOpen(ctx context.Context) ([]Opportunity, error) {
	return s.repo.ListOpen(ctx)
}

// Create stores a new opportunity as an audited mutation.
func (s *Service) Create(ctx context.Context, input UpsertInput) (*Opportunity, error) {
	opp, err := opportunityFromInput(input)
	if err != nil {
		return nil, err
	}

	created, err := audited.Run(ctx, s.recorder, audited.Mutation[*Opportunity]{
		Kind:    audited.KindCreate,
		Table:   opportunitiesTable,
		ActorID: input.ActorID,
		Apply: func(ctx context.Context) (*Opportunity, error) {
			if err := s.repo.Create(ctx, opp); err != nil {
				return nil, err
			}
			return s.repo.FindByID(ctx, opp.ID)
		},
		ResolveID: func(o *Opportunity) string { return o.ID },
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, audited.ActionTag(opportunitiesTable, audited.KindCreate), created.ID)
	return created, nil
}

// Update stores changes to an opportunity as an audited mutation.
func (s *Service) Update(ctx context.Context, id string, input UpsertInput) (*Opportunity, error) {
	opp, err := opportunityFromInput(input)
	if err != nil {
		return nil, err
	}
	opp.ID = id

	var oldValues map[string]any
	if prev, err := s.repo.FindByID(ctx, id); err == nil {
		oldValues = audited.Snapshot(prev)
	}

	updated, err := audited.Run(ctx, s.recorder, audited.Mutation[*Opportunity]{
		Kind:      audited.KindUpdate,
		Table:     opportunitiesTable,
		RecordID:  id,
		ActorID:   input.ActorID,
		OldValues: oldValues,
		Apply: func(ctx context.Context) (*Opportunity, error) {
			if err := s.repo.Update(ctx, opp); err != nil {
				return nil, err
			}
			return s.repo.FindByID(ctx, id)
		},
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, audited.ActionTag(opportunitiesTable, audited.KindUpdate), id)
	return updated, nil
}

// SetActive flips the active flag as an audited mutation.
func (s *Service) SetActive(ctx context.Context, id string, active bool, actorID string) error {
	var oldValues map[string]any
	if prev, err := s.repo.FindByID(ctx, id); err == nil {
		oldValues = audited.Snapshot(prev)
	}

	_, err := audited.Run(ctx, s.recorder, audited.Mutation[struct{}]{
		Kind:      audited.KindUpdate,
		Table:     opportunitiesTable,
		RecordID:  id,
		ActorID:   actorID,
		OldValues: oldValues,
		NewValues: map[string]any{"is_active": active},
		Apply: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.repo.SetActive(ctx, id, active)
		},
	})
	if err != nil {
		return err
	}

	s.publish(ctx, audited.ActionTag(opportunitiesTable, audited.KindUpdate), id)
	return nil
}

// Delete removes an opportunity as an audited mutation with a pre-read
// snapshot.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	var oldValues map[string]any
	if prev, err := s.repo.FindByID(ctx, id); err == nil {
		oldValues = audited.Snapshot(prev)
	}

	_, err := audited.Run(ctx, s.recorder, audited.Mutation[struct{}]{
		Kind:      audited.KindDelete,
		Table:     opportunitiesTable,
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

	s.publish(ctx, audited.ActionTag(opportunitiesTable, audited.KindDelete), id)
	return nil
}

func (s *Service) publish(ctx context.Context, action, recordID string) {
	s.pub.Publish(ctx, events.Change{Table: opportunitiesTable, Action: action, RecordID: recordID})
}

func opportunityFromInput(input UpsertInput) (*Opportunity, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperror.NewBadRequest("title is required")
	}

	return &Opportunity{
		Title:           title,
		DescriptionHTML: sanitize.HTML(input.DescriptionHTML),
		Location:        strings.TrimSpace(input.Location),
		ClosesAt:        input.ClosesAt,
		IsActive:        input.IsActive,
	}, nil
}
