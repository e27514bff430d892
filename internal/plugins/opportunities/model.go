// Package opportunities manages open positions and fellowships listed on
// the marketing site's careers page. Listings close automatically once
// their deadline passes.
package opportunities

import (
	"time"
)

// Opportunity is one open position or fellowship.
type Opportunity struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	DescriptionHTML string     `json:"description_html"`
	Location        string     `json:"location,omitempty"`
	ClosesAt        *time.Time `json:"closes_at,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Open reports whether the listing is visible to applicants: active and
// not past its deadline.
func (o *Opportunity) Open(now time.Time) bool {
	if !o.IsActive {
		return false
	}
	return o.ClosesAt == nil || o.ClosesAt.After(now)
}

// --- Request DTOs ---

// UpsertRequest holds the data for creating or updating an opportunity.
type UpsertRequest struct {
	Title           string     `json:"title" form:"title"`
	DescriptionHTML string     `json:"description_html" form:"description_html"`
	Location        string     `json:"location" form:"location"`
	ClosesAt        *time.Time `json:"closes_at" form:"closes_at"`
	IsActive        bool       `json:"is_active" form:"is_active"`
}

// --- Service Input DTOs ---

// UpsertInput is the validated input for creating or updating an
// opportunity.
type UpsertInput struct {
	Title           string
	DescriptionHTML string
	Location        string
	ClosesAt        *time.Time
	IsActive        bool
	ActorID         string
}
