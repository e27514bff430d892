package opportunities

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/events"
	"github.com/civitas-institute/civitas/internal/plugins/audit"
)

type mockRepo struct {
	findByIDFn  func(ctx context.Context, id string) (*Opportunity, error)
	listFn      func(ctx context.Context) ([]Opportunity, error)
	listOpenFn  func(ctx context.Context) ([]Opportunity, error)
	createFn    func(ctx context.Context, o *Opportunity) error
	updateFn    func(ctx context.Context, o *Opportunity) error
	setActiveFn func(ctx context.Context, id string, active bool) error
	deleteFn    func(ctx context.Context, id string) error
}

func (m *mockRepo) FindByID(ctx context.Context, id string) (*Opportunity, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockRepo) List(ctx context.Context) ([]Opportunity, error)     { return m.listFn(ctx) }
func (m *mockRepo) ListOpen(ctx context.Context) ([]Opportunity, error) { return m.listOpenFn(ctx) }
func (m *mockRepo) Create(ctx context.Context, o *Opportunity) error    { return m.createFn(ctx, o) }
func (m *mockRepo) Update(ctx context.Context, o *Opportunity) error    { return m.updateFn(ctx, o) }
func (m *mockRepo) SetActive(ctx context.Context, id string, active bool) error {
	return m.setActiveFn(ctx, id, active)
}
func (m *mockRepo) Delete(ctx context.Context, id string) error { return m.deleteFn(ctx, id) }

type mockRecorder struct {
	entries []*audit.Entry
}

func (m *mockRecorder) Record(ctx context.Context, entry *audit.Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func newTestService(repo Repository, rec *mockRecorder) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, rec, events.NopPublisher{}, logger)
}

func TestFailedUpdateProducesNoAuditEntries(t *testing.T) {
	repo := &mockRepo{
		findByIDFn: func(ctx context.Context, id string) (*Opportunity, error) {
			return nil, apperror.NewNotFound("opportunity not found")
		},
		updateFn: func(ctx context.Context, o *Opportunity) error {
			return apperror.NewNotFound("opportunity not found")
		},
	}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	_, err := svc.Update(context.Background(), "o-missing", UpsertInput{
		Title:   "Senior Fellow",
		ActorID: "admin-1",
	})
	if apperror.SafeCode(err) != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	if len(rec.entries) != 0 {
		t.Fatalf("failed update must produce zero audit entries, got %d", len(rec.entries))
	}
}

func TestUpdateCapturesOldValues(t *testing.T) {
	existing := &Opportunity{ID: "o-1", Title: "Research Assistant", IsActive: true}
	var stored *Opportunity
	repo := &mockRepo{
		findByIDFn: func(ctx context.Context, id string) (*Opportunity, error) {
			if stored != nil {
				return stored, nil
			}
			return existing, nil
		},
		updateFn: func(ctx context.Context, o *Opportunity) error {
			stored = o
			return nil
		},
	}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	_, err := svc.Update(context.Background(), "o-1", UpsertInput{
		Title:   "Senior Research Assistant",
		ActorID: "admin-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("expected exactly one audit entry, got %d", len(rec.entries))
	}
	entry := rec.entries[0]
	if entry.Action != "opportunities_update" {
		t.Fatalf("expected opportunities_update, got %q", entry.Action)
	}
	if entry.OldValues["title"] != "Research Assistant" {
		t.Fatalf("old values should carry the previous title, got %v", entry.OldValues)
	}
}

func TestCreateSanitizesDescription(t *testing.T) {
	var stored *Opportunity
	repo := &mockRepo{
		createFn: func(ctx context.Context, o *Opportunity) error {
			stored = o
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*Opportunity, error) {
			return stored, nil
		},
	}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec)

	opp, err := svc.Create(context.Background(), UpsertInput{
		Title:           "Policy Analyst",
		DescriptionHTML: `<p>Apply now</p><img src=x onerror=alert(1)>`,
		ActorID:         "admin-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opp.DescriptionHTML != `<p>Apply now</p><img src="x">` {
		t.Fatalf("description not sanitized as expected: %q", opp.DescriptionHTML)
	}
}

func TestOpenRespectsDeadline(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		opp  Opportunity
		want bool
	}{
		{"active no deadline", Opportunity{IsActive: true}, true},
		{"active future deadline", Opportunity{IsActive: true, ClosesAt: &future}, true},
		{"active past deadline", Opportunity{IsActive: true, ClosesAt: &past}, false},
		{"inactive", Opportunity{IsActive: false, ClosesAt: &future}, false},
	}
	for _, c := range cases {
		if got := c.opp.Open(now); got != c.want {
			t.Errorf("%s: Open() = %v, want %v", c.name, got, c.want)
		}
	}
}
