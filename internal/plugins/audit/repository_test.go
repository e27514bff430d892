package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
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

func TestInsertMarshalsSnapshots(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs("admin-1", "reports_update", "reports", "r-1",
			[]byte(`{"title":"Old"}`), []byte(`{"title":"New"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))

	entry := &Entry{
		ActorID:   "admin-1",
		Action:    "reports_update",
		TableName: "reports",
		RecordID:  "r-1",
		OldValues: map[string]any{"title": "Old"},
		NewValues: map[string]any{"title": "New"},
	}
	if err := repo.Insert(context.Background(), entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID != 7 {
		t.Fatalf("expected generated id 7, got %d", entry.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertNilSnapshotsBecomeNull(t *testing.T) {
	repo, mock := newMockDB(t)

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs("admin-1", "content_creation", "content", "c-1", nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), &Entry{
		ActorID:   "admin-1",
		Action:    "content_creation",
		TableName: "content",
		RecordID:  "c-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListFiltersByTable(t *testing.T) {
	repo, mock := newMockDB(t)

	created := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WithArgs("content").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM audit_logs a\s+LEFT JOIN users u`).
		WithArgs("content", 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "actor_id", "action", "table_name", "record_id",
			"old_values", "new_values", "created_at", "actor_name",
		}).AddRow(int64(7), "admin-1", "content_deletion", "content", "c-1",
			[]byte(`{"title":"Gone"}`), nil, created, "Committee Chair"))

	entries, total, err := repo.List(context.Background(), "content", 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("expected 1 entry, got total=%d len=%d", total, len(entries))
	}
	e := entries[0]
	if e.Action != "content_deletion" || e.ActorName != "Committee Chair" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.OldValues["title"] != "Gone" {
		t.Fatalf("old values not decoded: %v", e.OldValues)
	}
	if e.NewValues != nil {
		t.Fatalf("deletion entry should have no new values, got %v", e.NewValues)
	}
}

func TestListByRecordHistory(t *testing.T) {
	repo, mock := newMockDB(t)

	created := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`WHERE a\.table_name = \? AND a\.record_id = \?`).
		WithArgs("reports", "r-1", 100).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "actor_id", "action", "table_name", "record_id",
			"old_values", "new_values", "created_at", "actor_name",
		}).
			AddRow(int64(9), "mod-1", "reports_update", "reports", "r-1", nil, []byte(`{"title":"B"}`), created, "Desk Editor").
			AddRow(int64(8), "mod-1", "reports_creation", "reports", "r-1", nil, []byte(`{"title":"A"}`), created, "Desk Editor"))

	entries, err := repo.ListByRecord(context.Background(), "reports", "r-1", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != 9 || entries[1].ID != 8 {
		t.Fatalf("expected newest first, got %+v", entries)
	}
}
