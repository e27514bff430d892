package content

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

const contentTable = "content"

// Service handles content block business logic.
type Service struct {
	repo     Repository
	recorder audited.Recorder
	pub      events.Publisher
	store    storage.ObjectStore
	logger   *slog.Logger
}

// NewService creates a new content service.
func NewService(repo Repository, recorder audited.Recorder, pub events.Publisher, store storage.ObjectStore, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		pub:      pub,
		store:    store,
		logger:   logger.With("plugin", "content"),
	}
}

// Get returns a single block.
func (s *Service) Get(ctx context.Context, id string) (*Block, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns all blocks, optionally filtered by section. Panel view.
func (s *Service) List(ctx context.Context, section string) ([]Block, error) {
	return s.repo.List(ctx, section)
}

// ListPublished returns the blocks served to the public site.
func (s *Service) ListPublished(ctx context.Context, section string) ([]Block, error) {
	return s.repo.ListPublished(ctx, section)
}

// Create validates, sanitizes, and stores a new block as an audited
// mutation.
func (s *Service) Create(ctx context.Context, input UpsertInput) (*Block, error) {
	block, err := blockFromInput(input)
	if err != nil {
		return nil, err
	}

	created, err := audited.Run(ctx, s.recorder, audited.Mutation[*Block]{
		Kind:    audited.KindCreate,
		Table:   contentTable,
		ActorID: input.ActorID,
		Apply: func(ctx context.Context) (*Block, error) {
			if err := s.repo.Create(ctx, block); err != nil {
				return nil, err
			}
			return s.repo.FindByID(ctx, block.ID)
		},
		ResolveID: func(b *Block) string { return b.ID },
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ctx, events.Change{
		Table:    contentTable,
		Action:   audited.ActionTag(contentTable, audited.KindCreate),
		RecordID: created.ID,
	})
	return created, nil
}

// Update validates, sanitizes, and stores changes to a block as an audited
// mutation, capturing the previous values.
func (s *Service) Update(ctx context.Context, id string, input UpsertInput) (*Block, error) {
	block, err := blockFromInput(input)
	if err != nil {
		return nil, err
	}
	block.ID = id

	var oldValues map[string]any
	if prev, err := s.repo.FindByID(ctx, id); err == nil {
		oldValues = audited.Snapshot(prev)
	}

	updated, err := audited.Run(ctx, s.recorder, audited.Mutation[*Block]{
		Kind:      audited.KindUpdate,
		Table:     contentTable,
		RecordID:  id,
		ActorID:   input.ActorID,
		OldValues: oldValues,
		Apply: func(ctx context.Context) (*Block, error) {
			if err := s.repo.Update(ctx, block); err != nil {
				return nil, err
			}
			return s.repo.FindByID(ctx, id)
		},
	})
	if err != nil {
		return nil, err
	}

	s.pub.Publish(ctx, events.Change{
		Table:    contentTable,
		Action:   audited.ActionTag(contentTable, audited.KindUpdate),
		RecordID: id,
	})
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
		Table:     contentTable,
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

	s.pub.Publish(ctx, events.Change{
		Table:    contentTable,
		Action:   audited.ActionTag(contentTable, audited.KindUpdate),
		RecordID: id,
	})
	return nil
}

// Delete removes a block as an audited mutation. The old row is captured
// with a best-effort pre-read so the audit trail shows what was deleted;
// a failed pre-read never blocks the delete. Deleting an absent block is a
// 404 with no audit entry, so repeated deletes log exactly once.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	var oldValues map[string]any
	var imagePath string
	if prev, err := s.repo.FindByID(ctx, id); err == nil {
		oldValues = audited.Snapshot(prev)
		imagePath = prev.ImagePath
	}

	_, err := audited.Run(ctx, s.recorder, audited.Mutation[struct{}]{
		Kind:      audited.KindDelete,
		Table:     contentTable,
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

	if imagePath != "" {
		if err := s.store.Remove(ctx, storage.BucketMedia, imagePath); err != nil {
			s.logger.Warn("removing orphaned image failed", "block_id", id, "error", err)
		}
	}

	s.pub.Publish(ctx, events.Change{
		Table:    contentTable,
		Action:   audited.ActionTag(contentTable, audited.KindDelete),
		RecordID: id,
	})
	return nil
}

// UploadImage validates and stores an image for a block, then points the
// block at it. Validation happens before the store is touched; a rejected
// payload leaves both the store and the row unchanged.
func (s *Service) UploadImage(ctx context.Context, input UploadImageInput) (*Block, error) {
	if err := storage.Validate(input.Data, input.ContentType, 0); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(input.ContentType, "image/") {
		return nil, apperror.NewValidation("content images must be an image type")
	}

	prev, err := s.repo.FindByID(ctx, input.BlockID)
	if err != nil {
		return nil, err
	}

	obj, err := s.store.Put(ctx, storage.BucketMedia, input.FileName, input.Data, input.ContentType)
	if err != nil {
		return nil, err
	}

	updated, err := audited.Run(ctx, s.recorder, audited.Mutation[*Block]{
		Kind:      audited.KindUpdate,
		Table:     contentTable,
		RecordID:  input.BlockID,
		ActorID:   input.ActorID,
		Action:    "content_upload",
		OldValues: audited.Snapshot(prev),
		NewValues: map[string]any{"image_path": obj.Key},
		Apply: func(ctx context.Context) (*Block, error) {
			if err := s.repo.UpdateImagePath(ctx, input.BlockID, obj.Key); err != nil {
				return nil, err
			}
			return s.repo.FindByID(ctx, input.BlockID)
		},
	})
	if err != nil {
		// The row was not updated; do not leave the freshly stored file behind.
		s.store.Remove(ctx, storage.BucketMedia, obj.Key)
		return nil, err
	}

	if prev.ImagePath != "" && prev.ImagePath != obj.Key {
		if err := s.store.Remove(ctx, storage.BucketMedia, prev.ImagePath); err != nil {
			s.logger.Warn("removing replaced image failed", "block_id", input.BlockID, "error", err)
		}
	}

	s.pub.Publish(ctx, events.Change{
		Table:    contentTable,
		Action:   "content_upload",
		RecordID: input.BlockID,
	})
	return updated, nil
}

// blockFromInput validates and sanitizes request input into a Block.
func blockFromInput(input UpsertInput) (*Block, error) {
	section := strings.TrimSpace(input.Section)
	title := strings.TrimSpace(input.Title)
	if section == "" {
		return nil, apperror.NewBadRequest("section is required")
	}
	if title == "" {
		return nil, apperror.NewBadRequest("title is required")
	}
	return &Block{
		Section:     section,
		Title:       title,
		BodyHTML:    sanitize.HTML(input.BodyHTML),
		SortOrder:   input.SortOrder,
		IsPublished: input.IsPublished,
	}, nil
}
