package roles

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/plugins/audit"
)

// mockRepo implements Repository with function fields for testing.
type mockRepo struct {
	findByUserIDFn      func(ctx context.Context, userID string) (*Assignment, error)
	findUserIDByEmailFn func(ctx context.Context, email string) (string, error)
	upsertFn            func(ctx context.Context, userID string, role Role) (AssignOutcome, error)
	deleteFn            func(ctx context.Context, userID string) (*Assignment, error)
	listFn              func(ctx context.Context) ([]Assignment, error)
}

func (m *mockRepo) FindByUserID(ctx context.Context, userID string) (*Assignment, error) {
	return m.findByUserIDFn(ctx, userID)
}

func (m *mockRepo) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	return m.findUserIDByEmailFn(ctx, email)
}

func (m *mockRepo) Upsert(ctx context.Context, userID string, role Role) (AssignOutcome, error) {
	return m.upsertFn(ctx, userID, role)
}

func (m *mockRepo) Delete(ctx context.Context, userID string) (*Assignment, error) {
	return m.deleteFn(ctx, userID)
}

func (m *mockRepo) List(ctx context.Context) ([]Assignment, error) {
	return m.listFn(ctx)
}

// mockRecorder captures audit entries.
type mockRecorder struct {
	entries []*audit.Entry
	err     error
}

func (m *mockRecorder) Record(ctx context.Context, entry *audit.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func newTestService(repo Repository, rec *mockRecorder) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, rec, logger)
}

func assignmentFor(userID string, role Role) *Assignment {
	return &Assignment{ID: "ra-1", UserID: userID, Role: role}
}

func TestGateModeratorRedirectedOffAdminSurface(t *testing.T) {
	repo := &mockRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*Assignment, error) {
			return assignmentFor(userID, RoleModerator), nil
		},
	}
	svc := newTestService(repo, &mockRecorder{})

	d := svc.Gate(context.Background(), "user-mod", SurfaceAdmin)
	if d.Granted {
		t.Fatal("moderator must not be granted the admin surface")
	}
	if d.RedirectTo != "/moderator" {
		t.Fatalf("expected redirect to /moderator, got %q", d.RedirectTo)
	}
}

func TestGateModeratorGrantedOwnSurface(t *testing.T) {
	repo := &mockRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*Assignment, error) {
			return assignmentFor(userID, RoleModerator), nil
		},
	}
	svc := newTestService(repo, &mockRecorder{})

	d := svc.Gate(context.Background(), "user-mod", SurfaceModerator)
	if !d.Granted || d.Role != RoleModerator {
		t.Fatalf("expected moderator grant, got %+v", d)
	}
}

func TestGateAdminGrantedOwnSurface(t *testing.T) {
	repo := &mockRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*Assignment, error) {
			return assignmentFor(userID, RoleAdmin), nil
		},
	}
	svc := newTestService(repo, &mockRecorder{})

	d := svc.Gate(context.Background(), "user-admin", SurfaceAdmin)
	if !d.Granted || d.Role != RoleAdmin {
		t.Fatalf("expected admin grant, got %+v", d)
	}
}

func TestGateAdminRedirectedOffModeratorSurface(t *testing.T) {
	repo := &mockRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*Assignment, error) {
			return assignmentFor(userID, RoleAdmin), nil
		},
	}
	svc := newTestService(repo, &mockRecorder{})

	d := svc.Gate(context.Background(), "user-admin", SurfaceModerator)
	if d.Granted {
		t.Fatal("admin must not land on the moderator surface")
	}
	if d.RedirectTo != "/admin" {
		t.Fatalf("expected redirect to /admin, got %q", d.RedirectTo)
	}
}

func TestGateNoRoleRowsDenied(t *testing.T) {
	repo := &mockRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*Assignment, error) {
			return nil, apperror.NewNotFound("no role assigned")
		},
	}
	svc := newTestService(repo, &mockRecorder{})

	d := svc.Gate(context.Background(), "user-none", SurfaceAdmin)
	if d.Granted || d.RedirectTo != "" {
		t.Fatalf("expected denial, got %+v", d)
	}
}

func TestGateUserRoleDenied(t *testing.T) {
	repo := &mockRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*Assignment, error) {
			return assignmentFor(userID, RoleUser), nil
		},
	}
	svc := newTestService(repo, &mockRecorder{})

	d := svc.Gate(context.Background(), "user-plain", SurfaceModerator)
	if d.Granted || d.RedirectTo != "" {
		t.Fatalf("expected denial, got %+v", d)
	}
}

func TestGateFailsClosedOnLookupError(t *testing.T) {
	repo := &mockRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*Assignment, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := newTestService(repo, &mockRecorder{})

	d := svc.Gate(context.Background(), "user-1", SurfaceAdmin)
	if d.Granted || d.RedirectTo != "" {
		t.Fatalf("lookup failure must deny, got %+v", d)
	}
}

func TestGateUnknownRoleValueDenied(t *testing.T) {
	repo := &mockRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*Assignment, error) {
			return assignmentFor(userID, Role("superuser")), nil
		},
	}
	svc := newTestService(repo, &mockRecorder{})

	d := svc.Gate(context.Background(), "user-1", SurfaceAdmin)
	if d.Granted || d.RedirectTo != "" {
		t.Fatalf("unknown role must deny, got %+v", d)
	}
}

func TestAssignByEmailCreatesAndAudits(t *testing.T) {
	repo := &mockRepo{
		findUserIDByEmailFn: func(ctx context.Context, email string) (string, error) {
			if email != "new.mod@civitas.example" {
				t.Fatalf("email not lowercased/trimmed: %q", email)
			}
			return "user-9", nil
		},
		findByUserIDFn: func() func(ctx context.Context, userID string) (*Assignment, error) {
			calls := 0
			return func(ctx context.Context, userID string) (*Assignment, error) {
				calls++
				if calls == 1 {
					// Pre-read: no existing assignment.
					return nil, apperror.NewNotFound("no role assigned")
				}
				return assignmentFor(userID, RoleModerator), nil
			}
		}(),
		upsertFn: func(ctx context.Context, userID string, role Role) (AssignOutcome, error) {
			return OutcomeCreated, nil
		},
	}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	a, outcome, err := svc.AssignByEmail(context.Background(), AssignInput{
		Email:   " New.Mod@Civitas.Example ",
		Role:    RoleModerator,
		ActorID: "admin-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Fatalf("expected created, got %s", outcome)
	}
	if a.Role != RoleModerator {
		t.Fatalf("unexpected assignment: %+v", a)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("expected exactly one audit entry, got %d", len(rec.entries))
	}
	entry := rec.entries[0]
	if entry.Action != "user_roles_creation" {
		t.Fatalf("expected action user_roles_creation, got %q", entry.Action)
	}
	if entry.ActorID != "admin-1" || entry.RecordID != "user-9" {
		t.Fatalf("unexpected entry attribution: %+v", entry)
	}
}

func TestAssignByEmailReplacesExistingRole(t *testing.T) {
	repo := &mockRepo{
		findUserIDByEmailFn: func(ctx context.Context, email string) (string, error) {
			return "user-9", nil
		},
		findByUserIDFn: func() func(ctx context.Context, userID string) (*Assignment, error) {
			calls := 0
			return func(ctx context.Context, userID string) (*Assignment, error) {
				calls++
				if calls == 1 {
					return assignmentFor(userID, RoleModerator), nil
				}
				return assignmentFor(userID, RoleAdmin), nil
			}
		}(),
		upsertFn: func(ctx context.Context, userID string, role Role) (AssignOutcome, error) {
			return OutcomeUpdated, nil
		},
	}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	_, outcome, err := svc.AssignByEmail(context.Background(), AssignInput{
		Email:   "mod@civitas.example",
		Role:    RoleAdmin,
		ActorID: "admin-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Fatalf("expected updated, got %s", outcome)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("expected exactly one audit entry, got %d", len(rec.entries))
	}
	entry := rec.entries[0]
	if entry.Action != "user_roles_update" {
		t.Fatalf("expected action user_roles_update, got %q", entry.Action)
	}
	if entry.OldValues["role"] != "moderator" {
		t.Fatalf("old values should carry the replaced role, got %v", entry.OldValues)
	}
}

func TestAssignByEmailUnknownUserNoAudit(t *testing.T) {
	repo := &mockRepo{
		findUserIDByEmailFn: func(ctx context.Context, email string) (string, error) {
			return "", apperror.NewNotFound("user not found")
		},
	}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	_, _, err := svc.AssignByEmail(context.Background(), AssignInput{
		Email:   "ghost@civitas.example",
		Role:    RoleAdmin,
		ActorID: "admin-1",
	})
	if apperror.SafeCode(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	if len(rec.entries) != 0 {
		t.Fatalf("failed assignment must log nothing, got %d entries", len(rec.entries))
	}
}

func TestAssignByEmailInvalidRole(t *testing.T) {
	svc := newTestService(&mockRepo{}, &mockRecorder{})

	_, _, err := svc.AssignByEmail(context.Background(), AssignInput{
		Email:   "mod@civitas.example",
		Role:    Role("owner"),
		ActorID: "admin-1",
	})
	if apperror.SafeCode(err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestRemoveAuditsDeletedAssignment(t *testing.T) {
	prev := assignmentFor("user-9", RoleModerator)
	repo := &mockRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*Assignment, error) {
			return prev, nil
		},
		deleteFn: func(ctx context.Context, userID string) (*Assignment, error) {
			return prev, nil
		},
	}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	if err := svc.Remove(context.Background(), "user-9", "admin-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("expected exactly one audit entry, got %d", len(rec.entries))
	}
	entry := rec.entries[0]
	if entry.Action != "user_roles_deletion" {
		t.Fatalf("expected action user_roles_deletion, got %q", entry.Action)
	}
	if entry.OldValues == nil {
		t.Fatal("old values snapshot should be captured before the delete")
	}
}

func TestRemoveAbsentAssignmentNoAudit(t *testing.T) {
	repo := &mockRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*Assignment, error) {
			return nil, apperror.NewNotFound("no role assigned")
		},
		deleteFn: func(ctx context.Context, userID string) (*Assignment, error) {
			return nil, apperror.NewNotFound("no role assigned")
		},
	}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	err := svc.Remove(context.Background(), "user-9", "admin-1")
	if apperror.SafeCode(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	if len(rec.entries) != 0 {
		t.Fatalf("failed removal must log nothing, got %d entries", len(rec.entries))
	}
}
