package partners

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/audited"
	"github.com/civitas-institute/civitas/internal/events"
	"github.com/civitas-institute/civitas/internal/storage"
)

const partnersTable = "partners"

// Service handles partner business logic.
type Service struct {
	repo     Repository
	recorder audited.Recorder
	pub      events.Publisher
	store    storage.ObjectStore
	logger   *slog.Logger
}

// NewService creates a new partners service.
func NewService(repo Repository, recorder audited.Recorder, pub events.Publisher, store storage.ObjectStore, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		pub:      pub,
		store:    store,
		logger:   logger.With("plugin", "partners"),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Partner, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Partner, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListActive(ctx context.Context) ([]Partner, error) {
	return s.repo.ListActive(ctx)
}

// Create stores a new partner as an audited mutation.
func (s *Service) Create(ctx context.Context, input UpsertInput) (*Partner, error) {
	partner, err := partnerFromInput(input)
	if err != nil {
		return nil, err
	}

	created, err := audited.Run(ctx, s.recorder, audited.Mutation[*Partner]{
		Kind:    audited.KindCreate,
		Table:   partnersTable,
		ActorID: input.ActorID,
		Apply: func(ctx context.Context) (*Partner, error) {
			if err := s.repo.Create(ctx, partner); err != nil {
				return nil, err
			}
			return s.repo.FindByID(ctx, partner.ID)
		},
		ResolveID: func(p *Partner) string { return p.ID },
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, audited.ActionTag(partnersTable, audited.KindCreate), created.ID)
	return created, nil
}

// Update stores changes to a partner as an audited mutation.
func (s *Service) Update(ctx context.Context, id string, input UpsertInput) (*Partner, error) {
	partner, err := partnerFromInput(input)
	if err != nil {
		return nil, err
	}
	partner.ID = id

	var oldValues map[string]any
	if prev, err := s.repo.FindByID(ctx, id); err == nil {
		oldValues = audited.Snapshot(prev)
	}

	updated, err := audited.Run(ctx, s.recorder, audited.Mutation[*Partner]{
		Kind:      audited.KindUpdate,
		Table:     partnersTable,
		RecordID:  id,
		ActorID:   input.ActorID,
		OldValues: oldValues,
		Apply: func(ctx context.Context) (*Partner, error) {
			if err := s.repo.Update(ctx, partner); err != nil {
				return nil, err
			}
			return s.repo.FindByID(ctx, id)
		},
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, audited.ActionTag(partnersTable, audited.KindUpdate), id)
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
		Table:     partnersTable,
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

	s.publish(ctx, audited.ActionTag(partnersTable, audited.KindUpdate), id)
	return nil
}

// Delete removes a partner as an audited mutation with a pre-read
// snapshot, then best-effort removes its logo.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	var oldValues map[string]any
	var logoPath string
	if prev, err := s.repo.FindByID(ctx, id); err == nil {
		oldValues = audited.Snapshot(prev)
		logoPath = prev.LogoPath
	}

	_, err := audited.Run(ctx, s.recorder, audited.Mutation[struct{}]{
		Kind:      audited.KindDelete,
		Table:     partnersTable,
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

	if logoPath != "" {
		if err := s.store.Remove(ctx, storage.BucketLogos, logoPath); err != nil {
			s.logger.Warn("removing orphaned logo failed", "partner_id", id, "error", err)
		}
	}

	s.publish(ctx, audited.ActionTag(partnersTable, audited.KindDelete), id)
	return nil
}

// UploadLogo validates and stores a partner logo. Validation happens
// before the store is touched.
func (s *Service) UploadLogo(ctx context.Context, input UploadLogoInput) (*Partner, error) {
	if err := storage.Validate(input.Data, input.ContentType, 0); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(input.ContentType, "image/") {
		return nil, apperror.NewValidation("partner logos must be an image type")
	}

	prev, err := s.repo.FindByID(ctx, input.PartnerID)
	if err != nil {
		return nil, err
	}

	obj, err := s.store.Put(ctx, storage.BucketLogos, input.FileName, input.Data, input.ContentType)
	if err != nil {
		return nil, err
	}

	updated, err := audited.Run(ctx, s.recorder, audited.Mutation[*Partner]{
		Kind:      audited.KindUpdate,
		Table:     partnersTable,
		RecordID:  input.PartnerID,
		ActorID:   input.ActorID,
		Action:    "partners_upload",
		OldValues: audited.Snapshot(prev),
		NewValues: map[string]any{"logo_path": obj.Key},
		Apply: func(ctx context.Context) (*Partner, error) {
			if err := s.repo.UpdateLogoPath(ctx, input.PartnerID, obj.Key); err != nil {
				return nil, err
			}
			return s.repo.FindByID(ctx, input.PartnerID)
		},
	})
	if err != nil {
		s.store.Remove(ctx, storage.BucketLogos, obj.Key)
		return nil, err
	}

	if prev.LogoPath != "" && prev.LogoPath != obj.Key {
		if err := s.store.Remove(ctx, storage.BucketLogos, prev.LogoPath); err != nil {
			s.logger.Warn("removing replaced logo failed", "partner_id", input.PartnerID, "error", err)
		}
	}

	s.publish(ctx, "partners_upload", input.PartnerID)
	return updated, nil
}

func (s *Service) publish(ctx context.Context, action, recordID string) {
	s.pub.Publish(ctx, events.Change{Table: partnersTable, Action: action, RecordID: recordID})
}

func partnerFromInput(input UpsertInput) (*Partner, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.NewBadRequest("name is required")
	}

	websiteURL := strings.TrimSpace(input.WebsiteURL)
	if websiteURL != "" {
		u, err := url.Parse(websiteURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, apperror.NewBadRequest("website_url must be an absolute http(s) URL")
		}
	}

	return &Partner{
		Name:       name,
		WebsiteURL: websiteURL,
		IsActive:   input.IsActive,
	}, nil
}
