// Package partners manages the partner organizations shown on the
// marketing site's partner strip: name, link, and logo.
package partners

import (
	"time"
)

// Partner is one partner organization.
type Partner struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	WebsiteURL string    `json:"website_url,omitempty"`
	LogoPath   string    `json:"logo_path,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// --- Request DTOs ---

// UpsertRequest holds the data for creating or updating a partner.
type UpsertRequest struct {
	Name       string `json:"name" form:"name"`
	WebsiteURL string `json:"website_url" form:"website_url"`
	IsActive   bool   `json:"is_active" form:"is_active"`
}

// --- Service Input DTOs ---

// UpsertInput is the validated input for creating or updating a partner.
type UpsertInput struct {
	Name       string
	WebsiteURL string
	IsActive   bool
	ActorID    string
}

// UploadLogoInput carries a logo payload for a partner.
type UploadLogoInput struct {
	PartnerID   string
	FileName    string
	ContentType string
	Data        []byte
	ActorID     string
}
