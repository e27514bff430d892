// Package auth handles admin-panel authentication and session management
// for Civitas. Accounts are provisioned by an administrator (there is no
// public self-registration); sessions are opaque random tokens stored in
// Redis and carried in an HTTP-only cookie.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

import (
	"time"
)

// User represents a provisioned panel user. This is the domain model used
// throughout the application. Database scanning and JSON marshaling use
// this struct directly.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"-"` // Never expose in JSON responses.
	IsDisabled   bool       `json:"is_disabled"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the data submitted by the login form.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// --- Service Input DTOs (passed from handler to service) ---

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}

// --- Session ---

// Session represents an authenticated session stored in Redis. The session
// token is the key, and this struct is the value (JSON-encoded). It carries
// the identity only -- the role is resolved per request by the role gate so
// that role changes take effect without re-login.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
