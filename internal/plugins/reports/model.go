// Package reports manages the institute's published research output:
// policy reports, briefs, and white papers, optionally filed under a
// department and carrying an attached document (PDF or Word). Only
// published reports are served to the public site.
package reports

import (
	"time"
)

// Report is one research report.
type Report struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Summary      string     `json:"summary"`
	BodyHTML     string     `json:"body_html"`
	DepartmentID *string    `json:"department_id,omitempty"`
	FilePath     string     `json:"file_path,omitempty"`
	IsPublished  bool       `json:"is_published"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Joined from departments for listings.
	DepartmentName string `json:"department_name,omitempty"`
}

// ListOptions filters report listings.
type ListOptions struct {
	DepartmentID string
	Page         int
}

// --- Request DTOs ---

// UpsertRequest holds the data for creating or updating a report.
type UpsertRequest struct {
	Title        string  `json:"title" form:"title"`
	Summary      string  `json:"summary" form:"summary"`
	BodyHTML     string  `json:"body_html" form:"body_html"`
	DepartmentID *string `json:"department_id" form:"department_id"`
}

// --- Service Input DTOs ---

// UpsertInput is the validated input for creating or updating a report.
type UpsertInput struct {
	Title        string
	Summary      string
	BodyHTML     string
	DepartmentID *string
	ActorID      string
}

// UploadDocumentInput carries a document payload for a report.
type UploadDocumentInput struct {
	ReportID    string
	FileName    string
	ContentType string
	Data        []byte
	ActorID     string
}
