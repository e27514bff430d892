package roles

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/civitas-institute/civitas/internal/apperror"
)

func newMockDB(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestFindByUserIDPicksNewestAssignment(t *testing.T) {
	repo, mock := newMockDB(t)

	assigned := time.Date(2026, 5, 12, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "role", "assigned_at"}).
		AddRow("ra-2", "user-1", "admin", assigned)

	mock.ExpectQuery(`SELECT id, user_id, role, assigned_at FROM user_roles`).
		WithArgs("user-1").
		WillReturnRows(rows)

	a, err := repo.FindByUserID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Role != RoleAdmin || a.ID != "ra-2" {
		t.Fatalf("unexpected assignment: %+v", a)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByUserIDNoRows(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT id, user_id, role, assigned_at FROM user_roles`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "role", "assigned_at"}))

	_, err := repo.FindByUserID(context.Background(), "user-1")
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpsertInsertsWhenAbsent(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectExec(`INSERT INTO user_roles .*ON DUPLICATE KEY UPDATE`).
		WithArgs(sqlmock.AnyArg(), "user-1", RoleModerator).
		WillReturnResult(sqlmock.NewResult(1, 1))

	outcome, err := repo.Upsert(context.Background(), "user-1", RoleModerator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Fatalf("expected fresh creation, got %s", outcome)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertUpdatesWhenPresent(t *testing.T) {
	repo, mock := newMockDB(t)

	// An existing row hit through ON DUPLICATE KEY UPDATE reports 2 affected
	// rows. A single statement means two concurrent first assignments cannot
	// both see "absent" and race into a duplicate-key error.
	mock.ExpectExec(`INSERT INTO user_roles .*ON DUPLICATE KEY UPDATE`).
		WithArgs(sqlmock.AnyArg(), "user-1", RoleAdmin).
		WillReturnResult(sqlmock.NewResult(0, 2))

	outcome, err := repo.Upsert(context.Background(), "user-1", RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Fatalf("expected update, got %s", outcome)
	}
}

func TestDeleteMissingAssignmentIsNotFound(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT id, user_id, role, assigned_at FROM user_roles`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "role", "assigned_at"}))

	_, err := repo.Delete(context.Background(), "user-1")
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListJoinsUsers(t *testing.T) {
	repo, mock := newMockDB(t)

	assigned := time.Date(2026, 5, 12, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "role", "assigned_at", "email", "display_name"}).
		AddRow("ra-1", "user-1", "admin", assigned, "chair@civitas.example", "Committee Chair").
		AddRow("ra-2", "user-2", "moderator", assigned, "editor@civitas.example", "Desk Editor")

	mock.ExpectQuery(`FROM user_roles ur\s+JOIN users u`).WillReturnRows(rows)

	assignments, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assignments))
	}
	if assignments[0].UserEmail != "chair@civitas.example" {
		t.Fatalf("join columns not scanned: %+v", assignments[0])
	}
}
