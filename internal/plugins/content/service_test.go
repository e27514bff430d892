package content

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/events"
	"github.com/civitas-institute/civitas/internal/plugins/audit"
	"github.com/civitas-institute/civitas/internal/storage"
)

// mockRepo implements Repository with function fields for testing.
type mockRepo struct {
	findByIDFn        func(ctx context.Context, id string) (*Block, error)
	listFn            func(ctx context.Context, section string) ([]Block, error)
	listPublishedFn   func(ctx context.Context, section string) ([]Block, error)
	createFn          func(ctx context.Context, b *Block) error
	updateFn          func(ctx context.Context, b *Block) error
	updateImagePathFn func(ctx context.Context, id, imagePath string) error
	setPublishedFn    func(ctx context.Context, id string, published bool) error
	deleteFn          func(ctx context.Context, id string) error
}

func (m *mockRepo) FindByID(ctx context.Context, id string) (*Block, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockRepo) List(ctx context.Context, section string) ([]Block, error) {
	return m.listFn(ctx, section)
}
func (m *mockRepo) ListPublished(ctx context.Context, section string) ([]Block, error) {
	return m.listPublishedFn(ctx, section)
}
func (m *mockRepo) Create(ctx context.Context, b *Block) error { return m.createFn(ctx, b) }
func (m *mockRepo) Update(ctx context.Context, b *Block) error { return m.updateFn(ctx, b) }
func (m *mockRepo) UpdateImagePath(ctx context.Context, id, imagePath string) error {
	return m.updateImagePathFn(ctx, id, imagePath)
}
func (m *mockRepo) SetPublished(ctx context.Context, id string, published bool) error {
	return m.setPublishedFn(ctx, id, published)
}
func (m *mockRepo) Delete(ctx context.Context, id string) error { return m.deleteFn(ctx, id) }

// mockRecorder captures audit entries.
type mockRecorder struct {
	entries []*audit.Entry
}

func (m *mockRecorder) Record(ctx context.Context, entry *audit.Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

// mockStore counts object store calls.
type mockStore struct {
	putCalls    int
	removeCalls int
	putFn       func(ctx context.Context, bucket, name string, data []byte, contentType string) (*storage.StoredObject, error)
}

func (m *mockStore) Put(ctx context.Context, bucket, name string, data []byte, contentType string) (*storage.StoredObject, error) {
	m.putCalls++
	if m.putFn != nil {
		return m.putFn(ctx, bucket, name, data, contentType)
	}
	return &storage.StoredObject{Key: "2026/05/stored.png", ContentType: contentType}, nil
}

func (m *mockStore) PublicURL(bucket, key string) string { return "/files/" + bucket + "/" + key }

func (m *mockStore) Remove(ctx context.Context, bucket, key string) error {
	m.removeCalls++
	return nil
}

func newTestService(repo Repository, rec *mockRecorder, store storage.ObjectStore) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if store == nil {
		store = &mockStore{}
	}
	return NewService(repo, rec, events.NopPublisher{}, store, logger)
}

func sampleBlock(id string) *Block {
	return &Block{
		ID:          id,
		Section:     "mission",
		Title:       "Our Mission",
		BodyHTML:    "<p>Independent analysis.</p>",
		ImagePath:   "2026/03/old.png",
		SortOrder:   1,
		IsPublished: true,
	}
}

func TestCreateSanitizesBodyAndAudits(t *testing.T) {
	var stored *Block
	repo := &mockRepo{
		createFn: func(ctx context.Context, b *Block) error {
			stored = b
			return nil
		},
		findByIDFn: func(ctx context.Context, id string) (*Block, error) {
			return stored, nil
		},
	}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec, nil)

	block, err := svc.Create(context.Background(), UpsertInput{
		Section:  "mission",
		Title:    "Our Mission",
		BodyHTML: `<p>Hello</p><script>alert(1)</script>`,
		ActorID:  "admin-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(block.BodyHTML, "<script") {
		t.Fatalf("script tag survived sanitization: %q", block.BodyHTML)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("expected exactly one audit entry, got %d", len(rec.entries))
	}
	if rec.entries[0].Action != "content_creation" {
		t.Fatalf("expected content_creation, got %q", rec.entries[0].Action)
	}
	if rec.entries[0].RecordID != block.ID {
		t.Fatal("entry should carry the created block's id")
	}
}

func TestCreateMissingSectionRejectedBeforeStore(t *testing.T) {
	repo := &mockRepo{
		createFn: func(ctx context.Context, b *Block) error {
			t.Fatal("create must not reach the repository")
			return nil
		},
	}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec, nil)

	_, err := svc.Create(context.Background(), UpsertInput{Title: "No Section", ActorID: "admin-1"})
	if apperror.SafeCode(err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if len(rec.entries) != 0 {
		t.Fatal("rejected input must not be audited")
	}
}

func TestDeleteCapturesSnapshotAndAuditsOnce(t *testing.T) {
	block := sampleBlock("c-1")
	deleted := false
	repo := &mockRepo{
		findByIDFn: func(ctx context.Context, id string) (*Block, error) {
			if deleted {
				return nil, apperror.NewNotFound("content block not found")
			}
			return block, nil
		},
		deleteFn: func(ctx context.Context, id string) error {
			if deleted {
				return apperror.NewNotFound("content block not found")
			}
			deleted = true
			return nil
		},
	}
	rec := &mockRecorder{}
	store := &mockStore{}
	svc := newTestService(repo, rec, store)

	if err := svc.Delete(context.Background(), "c-1", "admin-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("expected exactly one audit entry, got %d", len(rec.entries))
	}
	entry := rec.entries[0]
	if entry.Action != "content_deletion" {
		t.Fatalf("expected content_deletion, got %q", entry.Action)
	}
	if entry.OldValues["title"] != "Our Mission" {
		t.Fatalf("old values should snapshot the deleted row, got %v", entry.OldValues)
	}
	if store.removeCalls != 1 {
		t.Fatal("orphaned image should be removed after a delete")
	}

	// Second delete of the same id: 404, and still exactly one entry.
	err := svc.Delete(context.Background(), "c-1", "admin-1")
	if apperror.SafeCode(err) != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat delete, got %v", err)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("repeat delete must not log again, got %d entries", len(rec.entries))
	}
}

func TestDeleteProceedsWhenPreReadFails(t *testing.T) {
	calls := 0
	repo := &mockRepo{
		findByIDFn: func(ctx context.Context, id string) (*Block, error) {
			calls++
			return nil, apperror.NewInternal(nil)
		},
		deleteFn: func(ctx context.Context, id string) error { return nil },
	}
	rec := &mockRecorder{}
	svc := newTestService(repo, rec, nil)

	if err := svc.Delete(context.Background(), "c-1", "admin-1"); err != nil {
		t.Fatalf("pre-read failure must not block the delete: %v", err)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(rec.entries))
	}
	if rec.entries[0].OldValues != nil {
		t.Fatal("old values should be nil when the pre-read failed")
	}
}

func TestUploadImageRejectedBeforeStoreCall(t *testing.T) {
	repo := &mockRepo{
		findByIDFn: func(ctx context.Context, id string) (*Block, error) {
			return sampleBlock(id), nil
		},
	}
	rec := &mockRecorder{}
	store := &mockStore{}
	svc := newTestService(repo, rec, store)

	_, err := svc.UploadImage(context.Background(), UploadImageInput{
		BlockID:     "c-1",
		FileName:    "evil.exe",
		ContentType: "application/x-msdownload",
		Data:        []byte{0x4d, 0x5a, 0x90, 0x00},
		ActorID:     "admin-1",
	})
	if apperror.SafeCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	if store.putCalls != 0 {
		t.Fatal("rejected upload must never reach the object store")
	}
	if len(rec.entries) != 0 {
		t.Fatal("rejected upload must not be audited")
	}
}

func TestUploadImageStoresAndAuditsWithUploadTag(t *testing.T) {
	block := sampleBlock("c-1")
	repo := &mockRepo{
		findByIDFn: func(ctx context.Context, id string) (*Block, error) {
			snapshot := *block
			return &snapshot, nil
		},
		updateImagePathFn: func(ctx context.Context, id, imagePath string) error {
			block.ImagePath = imagePath
			return nil
		},
	}
	rec := &mockRecorder{}
	store := &mockStore{}
	svc := newTestService(repo, rec, store)

	// Minimal valid PNG header plus padding.
	png := append([]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 32)...)

	updated, err := svc.UploadImage(context.Background(), UploadImageInput{
		BlockID:     "c-1",
		FileName:    "hero.png",
		ContentType: "image/png",
		Data:        png,
		ActorID:     "admin-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ImagePath != "2026/05/stored.png" {
		t.Fatalf("image path not updated: %q", updated.ImagePath)
	}
	if store.putCalls != 1 {
		t.Fatalf("expected one store put, got %d", store.putCalls)
	}
	if len(rec.entries) != 1 || rec.entries[0].Action != "content_upload" {
		t.Fatalf("expected one content_upload entry, got %+v", rec.entries)
	}
	// The replaced image is cleaned up.
	if store.removeCalls != 1 {
		t.Fatalf("expected replaced image removal, got %d removes", store.removeCalls)
	}
}
