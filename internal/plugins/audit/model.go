// Package audit provides the append-only audit trail for the admin panel.
// Every state-changing operation against managed content (page blocks,
// reports, partners, opportunities, role assignments) is captured as an
// Entry and persisted to the audit_logs table. The admin activity feed
// gives the institute visibility into who changed what and when.
//
// Entries are written exactly once per successful mutation by the
// internal/audited wrapper; the application never updates or deletes them.
package audit

import "time"

// Entry represents a single recorded action in the audit trail. Each entry
// ties an actor to a mutation against one row of a managed table. Old and
// new value snapshots hold the row state around the mutation where the
// caller captured one.
type Entry struct {
	ID        int64          `json:"id"`
	ActorID   string         `json:"actorId"`
	Action    string         `json:"action"`
	TableName string         `json:"tableName"`
	RecordID  string         `json:"recordId,omitempty"`
	OldValues map[string]any `json:"oldValues,omitempty"`
	NewValues map[string]any `json:"newValues,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`

	// ActorName is joined from the users table for display in the activity
	// feed. Not stored in audit_logs -- populated at query time.
	ActorName string `json:"actorName,omitempty"`
}

// ListOptions filters and paginates the admin activity feed.
type ListOptions struct {
	// Table limits the feed to a single table name. Empty means all tables.
	Table string

	// Page is 1-indexed; invalid values are clamped to 1.
	Page int
}
