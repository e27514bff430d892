// Package content manages the editable page blocks of the Civitas
// marketing site: hero copy, mission statements, section bodies, and the
// images attached to them. Blocks are grouped by section and ordered
// within it; only published blocks are served to the public site.
package content

import (
	"time"
)

// Block is one editable content block.
type Block struct {
	ID          string    `json:"id"`
	Section     string    `json:"section"`
	Title       string    `json:"title"`
	BodyHTML    string    `json:"body_html"`
	ImagePath   string    `json:"image_path,omitempty"`
	SortOrder   int       `json:"sort_order"`
	IsPublished bool      `json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// --- Request DTOs ---

// UpsertRequest holds the data for creating or updating a block.
type UpsertRequest struct {
	Section     string `json:"section" form:"section"`
	Title       string `json:"title" form:"title"`
	BodyHTML    string `json:"body_html" form:"body_html"`
	SortOrder   int    `json:"sort_order" form:"sort_order"`
	IsPublished bool   `json:"is_published" form:"is_published"`
}

// --- Service Input DTOs ---

// UpsertInput is the validated input for creating or updating a block.
type UpsertInput struct {
	Section     string
	Title       string
	BodyHTML    string
	SortOrder   int
	IsPublished bool
	ActorID     string
}

// UploadImageInput carries an image payload for a block.
type UploadImageInput struct {
	BlockID     string
	FileName    string
	ContentType string
	Data        []byte
	ActorID     string
}
