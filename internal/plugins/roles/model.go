// Package roles implements role assignment and the surface gate for the
// Civitas admin panel. Every authenticated request to a protected surface
// passes through the gate, which resolves the user's role from the
// user_roles table and decides whether to grant access, redirect to the
// surface matching the role, or deny.
//
// The gate fails closed: a lookup error, a missing row, or an unknown role
// value all deny access. No role is ever assumed.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package roles

import (
	"time"
)

// Role is a user's assigned role. Exactly one role per user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// Valid reports whether r is one of the known roles. Unknown values in the
// database are treated as no role at all.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// Surface identifies a protected area of the panel. Admins may enter both
// surfaces; moderators only the moderator surface.
type Surface string

const (
	SurfaceAdmin     Surface = "admin"
	SurfaceModerator Surface = "moderator"
)

// Path returns the base path of the surface, used as a redirect target when
// a user lands on the wrong one.
func (s Surface) Path() string {
	switch s {
	case SurfaceAdmin:
		return "/admin"
	case SurfaceModerator:
		return "/moderator"
	}
	return "/"
}

// Decision is the gate's verdict for a user on a surface. Exactly one of
// the three outcomes holds: denied, granted, or redirect elsewhere.
type Decision struct {
	Granted    bool   `json:"granted"`
	Role       Role   `json:"role,omitempty"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// Denied is the zero-value fail-closed decision.
var Denied = Decision{}

// Granted returns an allow decision carrying the resolved role.
func Granted(role Role) Decision {
	return Decision{Granted: true, Role: role}
}

// Redirect returns a decision sending the user to another surface.
func Redirect(to Surface) Decision {
	return Decision{RedirectTo: to.Path()}
}

// Assignment is a row in user_roles joined with the user it belongs to.
type Assignment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Role       Role      `json:"role"`
	AssignedAt time.Time `json:"assigned_at"`

	// Joined from users for listing.
	UserEmail string `json:"user_email,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}

// AssignOutcome tags whether an assignment created a new row or replaced
// an existing one.
type AssignOutcome string

const (
	OutcomeCreated AssignOutcome = "created"
	OutcomeUpdated AssignOutcome = "updated"
)

// --- Request DTOs ---

// AssignRequest holds the data for assigning a role by email.
type AssignRequest struct {
	Email string `json:"email" form:"email"`
	Role  string `json:"role" form:"role"`
}

// --- Service Input DTOs ---

// AssignInput is the validated input for assigning a role.
type AssignInput struct {
	Email   string
	Role    Role
	ActorID string
}
