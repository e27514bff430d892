package audited

import (
	"context"
	"errors"
	"testing"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/plugins/audit"
)

// mockRecorder captures audit entries for assertions.
type mockRecorder struct {
	recordFn func(ctx context.Context, entry *audit.Entry) error
	entries  []*audit.Entry
}

func (m *mockRecorder) Record(ctx context.Context, entry *audit.Entry) error {
	m.entries = append(m.entries, entry)
	if m.recordFn != nil {
		return m.recordFn(ctx, entry)
	}
	return nil
}

type doc struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestRun_SuccessAppendsExactlyOneEntry(t *testing.T) {
	rec := &mockRecorder{}

	got, err := Run(context.Background(), rec, Mutation[*doc]{
		Kind:      KindUpdate,
		Table:     "reports",
		RecordID:  "r42",
		ActorID:   "u1",
		NewValues: map[string]any{"title": "Updated"},
		Apply: func(ctx context.Context) (*doc, error) {
			return &doc{ID: "r42", Title: "Updated"}, nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != "r42" {
		t.Fatalf("expected result to pass through, got %+v", got)
	}

	if len(rec.entries) != 1 {
		t.Fatalf("expected exactly 1 audit entry, got %d", len(rec.entries))
	}
	e := rec.entries[0]
	if e.Action != "reports_update" {
		t.Errorf("expected action reports_update, got %s", e.Action)
	}
	if e.TableName != "reports" || e.RecordID != "r42" || e.ActorID != "u1" {
		t.Errorf("unexpected entry fields: %+v", e)
	}
}

func TestRun_StoreFailureLogsNothing(t *testing.T) {
	rec := &mockRecorder{}
	storeErr := apperror.NewInternal(errors.New("connection reset"))

	_, err := Run(context.Background(), rec, Mutation[*doc]{
		Kind:    KindUpdate,
		Table:   "opportunities",
		ActorID: "u2",
		Apply: func(ctx context.Context) (*doc, error) {
			return nil, storeErr
		},
	})
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error surfaced unchanged, got %v", err)
	}
	if len(rec.entries) != 0 {
		t.Errorf("expected 0 audit entries after failed mutation, got %d", len(rec.entries))
	}
}

func TestRun_DeleteCapturesOldValues(t *testing.T) {
	rec := &mockRecorder{}

	_, err := Run(context.Background(), rec, Mutation[struct{}]{
		Kind:      KindDelete,
		Table:     "content",
		RecordID:  "abc123",
		ActorID:   "u1",
		OldValues: map[string]any{"id": "abc123", "title": "Hero"},
		Apply: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(rec.entries))
	}
	e := rec.entries[0]
	if e.Action != "content_deletion" {
		t.Errorf("expected action content_deletion, got %s", e.Action)
	}
	if e.OldValues == nil || e.OldValues["title"] != "Hero" {
		t.Errorf("expected old values snapshot, got %+v", e.OldValues)
	}
}

func TestRun_NotFoundDeleteDoesNotDoubleLog(t *testing.T) {
	rec := &mockRecorder{}

	// Second delete of an already-deleted row surfaces not-found from the
	// repository; no entry may be appended.
	_, err := Run(context.Background(), rec, Mutation[struct{}]{
		Kind:     KindDelete,
		Table:    "content",
		RecordID: "gone",
		ActorID:  "u1",
		Apply: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, apperror.NewNotFound("content block not found")
		},
	})
	if apperror.SafeCode(err) != 404 {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if len(rec.entries) != 0 {
		t.Errorf("expected no audit entry for idempotent delete, got %d", len(rec.entries))
	}
}

func TestRun_AppendFailureDoesNotFailMutation(t *testing.T) {
	rec := &mockRecorder{
		recordFn: func(ctx context.Context, entry *audit.Entry) error {
			return errors.New("audit table unavailable")
		},
	}

	got, err := Run(context.Background(), rec, Mutation[*doc]{
		Kind:    KindCreate,
		Table:   "partners",
		ActorID: "u3",
		Apply: func(ctx context.Context) (*doc, error) {
			return &doc{ID: "p1"}, nil
		},
		ResolveID: func(d *doc) string { return d.ID },
	})
	if err != nil {
		t.Fatalf("expected mutation to succeed despite append failure, got %v", err)
	}
	if got.ID != "p1" {
		t.Errorf("expected result passthrough, got %+v", got)
	}
}

func TestRun_ActionOverride(t *testing.T) {
	rec := &mockRecorder{}

	_, err := Run(context.Background(), rec, Mutation[*doc]{
		Kind:    KindCreate,
		Table:   "content",
		ActorID: "u1",
		Action:  "content_upload",
		Apply: func(ctx context.Context) (*doc, error) {
			return &doc{ID: "c9"}, nil
		},
		ResolveID: func(d *doc) string { return d.ID },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.entries[0].Action != "content_upload" {
		t.Errorf("expected action override, got %s", rec.entries[0].Action)
	}
	if rec.entries[0].RecordID != "c9" {
		t.Errorf("expected ResolveID to fill record id, got %q", rec.entries[0].RecordID)
	}
}

func TestRun_MissingActorRejectedBeforeApply(t *testing.T) {
	rec := &mockRecorder{}
	applied := false

	_, err := Run(context.Background(), rec, Mutation[struct{}]{
		Kind:  KindUpdate,
		Table: "content",
		Apply: func(ctx context.Context) (struct{}, error) {
			applied = true
			return struct{}{}, nil
		},
	})
	if apperror.SafeCode(err) != 400 {
		t.Fatalf("expected bad request, got %v", err)
	}
	if applied {
		t.Error("expected Apply not to run without an actor")
	}
}

func TestActionTag(t *testing.T) {
	tests := []struct {
		table string
		kind  Kind
		want  string
	}{
		{"content", KindCreate, "content_creation"},
		{"content", KindUpdate, "content_update"},
		{"content", KindDelete, "content_deletion"},
		{"user_roles", KindDelete, "user_roles_deletion"},
	}
	for _, tt := range tests {
		if got := ActionTag(tt.table, tt.kind); got != tt.want {
			t.Errorf("ActionTag(%s, %s) = %s, want %s", tt.table, tt.kind, got, tt.want)
		}
	}
}

func TestSnapshot(t *testing.T) {
	m := Snapshot(&doc{ID: "d1", Title: "Brief"})
	if m == nil {
		t.Fatal("expected snapshot map")
	}
	if m["id"] != "d1" || m["title"] != "Brief" {
		t.Errorf("expected JSON field names in snapshot, got %+v", m)
	}

	if Snapshot(nil) != nil {
		t.Error("expected nil snapshot for nil input")
	}
}
