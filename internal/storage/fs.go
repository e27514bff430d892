package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civitas-institute/civitas/internal/apperror"
)

// FileStore is the filesystem-backed ObjectStore. Files land under
// <root>/<bucket>/<yyyy>/<mm>/<uuid><ext> and are served by the HTTP layer
// under <baseURL>/files/<bucket>/<key>.
type FileStore struct {
	root    string
	baseURL string
}

// NewFileStore creates a filesystem object store rooted at root. baseURL is
// the public URL prefix used to build download links.
func NewFileStore(root, baseURL string) *FileStore {
	return &FileStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Root returns the directory files are stored under, for the static route.
func (s *FileStore) Root() string {
	return s.root
}

// Put stores data under the given bucket with a date-sharded UUID filename.
// The extension comes from the validated content type, falling back to the
// original name's extension for types without a canonical one.
func (s *FileStore) Put(ctx context.Context, bucket, originalName string, data []byte, contentType string) (*StoredObject, error) {
	ext := MimeToExtension[contentType]
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(originalName))
	}

	now := time.Now().UTC()
	shard := now.Format("2006/01")
	name := uuid.NewString() + ext
	key := path.Join(shard, name)

	dir := filepath.Join(s.root, bucket, filepath.FromSlash(shard))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating storage directory: %w", err))
	}

	fullPath := filepath.Join(dir, name)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("writing stored file: %w", err))
	}

	slog.Info("file stored",
		slog.String("bucket", bucket),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.String("content_type", contentType),
	)

	return &StoredObject{
		Key:         key,
		URL:         s.PublicURL(bucket, key),
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

// PublicURL returns the download URL for a stored key.
func (s *FileStore) PublicURL(bucket, key string) string {
	return s.baseURL + "/files/" + bucket + "/" + key
}

// Remove deletes a stored object from disk. A missing file is ignored --
// removal runs as best-effort cleanup after the owning row is deleted.
func (s *FileStore) Remove(ctx context.Context, bucket, key string) error {
	full := filepath.Join(s.root, bucket, filepath.FromSlash(key))

	// Refuse paths that escape the storage root.
	if !strings.HasPrefix(filepath.Clean(full), filepath.Clean(s.root)) {
		return apperror.NewBadRequest("invalid storage key")
	}

	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return apperror.NewInternal(fmt.Errorf("removing stored file: %w", err))
	}
	return nil
}
