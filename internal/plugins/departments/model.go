// Package departments manages the institute's research departments, the
// organizational grouping reports are filed under. Public departments
// appear on the marketing site; private ones exist only in the panel.
package departments

import (
	"time"
)

// Department is one research department.
type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// --- Request DTOs ---

// UpsertRequest holds the data for creating or updating a department.
type UpsertRequest struct {
	Name        string `json:"name" form:"name"`
	Slug        string `json:"slug" form:"slug"`
	Description string `json:"description" form:"description"`
	IsPublic    bool   `json:"is_public" form:"is_public"`
}

// --- Service Input DTOs ---

// UpsertInput is the validated input for creating or updating a department.
type UpsertInput struct {
	Name        string
	Slug        string
	Description string
	IsPublic    bool
	ActorID     string
}
