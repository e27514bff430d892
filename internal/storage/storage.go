// Package storage handles uploaded documents and images for Civitas:
// report PDFs, partner logos, and page media. Files are validated before
// they reach the store (size cap, MIME allowlist, magic-byte check) and
// saved under date-sharded directories with UUID names.
package storage

import "context"

// Buckets group uploads by purpose. Each bucket maps to a subdirectory of
// the storage root and a URL prefix.
const (
	BucketReports = "reports"
	BucketLogos   = "logos"
	BucketMedia   = "media"
)

// StoredObject describes a successfully stored file.
type StoredObject struct {
	// Key is the bucket-relative path of the stored file (e.g.
	// "2026/01/9f3c...-brief.pdf"). Persisted in the owning entity's row.
	Key string `json:"key"`

	// URL is the public URL the front ends use to fetch the file.
	URL string `json:"url"`

	// Size is the stored size in bytes.
	Size int64 `json:"size"`

	// ContentType is the validated MIME type.
	ContentType string `json:"contentType"`
}

// ObjectStore is the contract for the object storage collaborator. The
// filesystem implementation below is the default; a cloud-bucket
// implementation can be swapped in without touching the services.
type ObjectStore interface {
	// Put stores data under the given bucket with a generated unique name
	// derived from originalName's extension. The caller must have validated
	// the payload first (see Validate).
	Put(ctx context.Context, bucket, originalName string, data []byte, contentType string) (*StoredObject, error)

	// PublicURL returns the URL for a previously stored key.
	PublicURL(bucket, key string) string

	// Remove deletes a stored object. Missing objects are not an error --
	// removal is best-effort cleanup after a row delete.
	Remove(ctx context.Context, bucket, key string) error
}
