package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/audited"
)

// userRolesTable is the audit table name for role mutations.
const userRolesTable = "user_roles"

// Service handles role resolution and assignment business logic.
type Service struct {
	repo     Repository
	recorder audited.Recorder
	logger   *slog.Logger
}

// NewService creates a new roles service.
func NewService(repo Repository, recorder audited.Recorder, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		logger:   logger.With("plugin", "roles"),
	}
}

// Resolve returns the user's role. A missing assignment or an unknown role
// value in the database both resolve to no role at all (nil), never to a
// guessed role.
func (s *Service) Resolve(ctx context.Context, userID string) (Role, error) {
	a, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("resolving role: %w", err)
	}
	if !a.Role.Valid() {
		s.logger.Warn("unknown role value in store, treating as unassigned",
			"user_id", userID, "role", string(a.Role))
		return "", nil
	}
	return a.Role, nil
}

// Gate decides whether userID may enter surface. It fails closed: any
// resolution error denies access rather than guessing.
//
//	admin     -> granted on the admin surface, redirected off moderator
//	moderator -> granted on the moderator surface, redirected off admin
//	user/none -> denied everywhere
func (s *Service) Gate(ctx context.Context, userID string, surface Surface) Decision {
	role, err := s.Resolve(ctx, userID)
	if err != nil {
		s.logger.Error("role resolution failed, denying access",
			"user_id", userID, "surface", string(surface), "error", err)
		return Denied
	}

	switch role {
	case RoleAdmin:
		if surface == SurfaceAdmin {
			return Granted(RoleAdmin)
		}
		return Redirect(SurfaceAdmin)
	case RoleModerator:
		if surface == SurfaceModerator {
			return Granted(RoleModerator)
		}
		return Redirect(SurfaceModerator)
	default:
		return Denied
	}
}

// AssignByEmail assigns a role to the user identified by email, replacing
// any existing assignment. It reports whether the assignment was created
// or updated, and the audit entry's kind follows that distinction.
func (s *Service) AssignByEmail(ctx context.Context, input AssignInput) (*Assignment, AssignOutcome, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, "", apperror.NewBadRequest("email is required")
	}
	if !input.Role.Valid() {
		return nil, "", apperror.NewBadRequest(fmt.Sprintf("unknown role %q", input.Role))
	}

	userID, err := s.repo.FindUserIDByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}

	// Pre-read to pick the audit kind and capture the replaced role. The
	// upsert itself is atomic; this only labels the entry.
	kind := audited.KindCreate
	var oldValues map[string]any
	if prev, err := s.repo.FindByUserID(ctx, userID); err == nil {
		kind = audited.KindUpdate
		oldValues = audited.Snapshot(prev)
	} else if !apperror.IsNotFound(err) {
		return nil, "", err
	}

	var outcome AssignOutcome

	result, err := audited.Run(ctx, s.recorder, audited.Mutation[*Assignment]{
		Kind:      kind,
		Table:     userRolesTable,
		RecordID:  userID,
		ActorID:   input.ActorID,
		OldValues: oldValues,
		NewValues: map[string]any{
			"user_id": userID,
			"email":   email,
			"role":    string(input.Role),
		},
		Apply: func(ctx context.Context) (*Assignment, error) {
			o, err := s.repo.Upsert(ctx, userID, input.Role)
			if err != nil {
				return nil, err
			}
			outcome = o
			return s.repo.FindByUserID(ctx, userID)
		},
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("role assigned",
		"user_id", userID, "role", string(input.Role), "outcome", string(outcome))
	return result, outcome, nil
}

// Remove deletes the user's role assignment. The deleted assignment is
// captured as the audit old values. Removing an absent assignment is a 404.
func (s *Service) Remove(ctx context.Context, userID, actorID string) error {
	// Best-effort pre-read so the audit entry shows what was removed.
	var oldValues map[string]any
	if prev, err := s.repo.FindByUserID(ctx, userID); err == nil {
		oldValues = audited.Snapshot(prev)
	}

	_, err := audited.Run(ctx, s.recorder, audited.Mutation[*Assignment]{
		Kind:      audited.KindDelete,
		Table:     userRolesTable,
		RecordID:  userID,
		ActorID:   actorID,
		OldValues: oldValues,
		Apply: func(ctx context.Context) (*Assignment, error) {
			return s.repo.Delete(ctx, userID)
		},
	})
	return err
}

// List returns all role assignments with user details.
func (s *Service) List(ctx context.Context) ([]Assignment, error) {
	return s.repo.List(ctx)
}
