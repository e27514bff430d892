// Package audited implements the mutate-then-log discipline every
// state-changing operation in the admin panel goes through. A mutation is
// executed against the database first; only after the store acknowledges it
// does the wrapper append exactly one audit entry describing who changed
// what. A failed mutation produces no entry, and a failed append never
// rolls back or masks the committed mutation.
package audited

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/civitas-institute/civitas/internal/apperror"
	"github.com/civitas-institute/civitas/internal/metrics"
	"github.com/civitas-institute/civitas/internal/plugins/audit"
)

// Kind classifies a mutation.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// noun returns the action-tag noun for a kind, e.g. "content" + KindDelete
// yields the tag "content_deletion".
func (k Kind) noun() string {
	switch k {
	case KindCreate:
		return "creation"
	case KindDelete:
		return "deletion"
	default:
		return "update"
	}
}

// ActionTag builds the default audit action tag for a table and kind.
func ActionTag(table string, kind Kind) string {
	return table + "_" + kind.noun()
}

// Recorder is the audit sink. Satisfied by audit.Service.
type Recorder interface {
	Record(ctx context.Context, entry *audit.Entry) error
}

// Mutation describes one state-changing operation. Apply performs the
// actual store call and returns the resulting value (for creates and
// updates) or the zero value (for deletes).
type Mutation[T any] struct {
	// Kind is the mutation class; drives the default action tag.
	Kind Kind

	// Table is the affected table name, e.g. "reports".
	Table string

	// RecordID identifies the affected row. May be empty for creates until
	// Apply runs; use ResolveID to fill it from the created value.
	RecordID string

	// ActorID is the authenticated user performing the mutation.
	ActorID string

	// Action overrides the default "<table>_<noun>" tag when set, e.g.
	// "content_upload" for a create that also stored a file.
	Action string

	// OldValues is the row snapshot before the mutation. For deletes the
	// service captures it with a best-effort pre-read; a failed pre-read
	// leaves it nil rather than aborting the delete.
	OldValues map[string]any

	// NewValues is the row snapshot after the mutation.
	NewValues map[string]any

	// Apply performs the store call. Its error is surfaced to the caller
	// unchanged; no retries happen here.
	Apply func(ctx context.Context) (T, error)

	// ResolveID optionally extracts the record ID from Apply's result,
	// for creates where the ID is generated inside the repository path.
	ResolveID func(result T) string
}

// Run executes the mutation and, on success, appends exactly one audit
// entry. Ordering is strict: the store call completes first, then the
// append. On store failure the error is returned as-is and nothing is
// logged. An append failure is recorded via slog and metrics but never
// propagated -- audit logging is best-effort by contract.
func Run[T any](ctx context.Context, rec Recorder, m Mutation[T]) (T, error) {
	var zero T

	if m.ActorID == "" {
		return zero, apperror.NewBadRequest("actor is required for an audited mutation")
	}
	if m.Table == "" {
		return zero, apperror.NewBadRequest("table is required for an audited mutation")
	}
	if m.Apply == nil {
		return zero, apperror.NewInternal(nil)
	}

	result, err := m.Apply(ctx)
	if err != nil {
		metrics.MutationsFailed.Inc()
		return zero, err
	}

	metrics.MutationsTotal.WithLabelValues(m.Table, string(m.Kind)).Inc()

	recordID := m.RecordID
	if recordID == "" && m.ResolveID != nil {
		recordID = m.ResolveID(result)
	}

	action := m.Action
	if action == "" {
		action = ActionTag(m.Table, m.Kind)
	}

	entry := &audit.Entry{
		ActorID:   m.ActorID,
		Action:    action,
		TableName: m.Table,
		RecordID:  recordID,
		OldValues: m.OldValues,
		NewValues: m.NewValues,
	}

	if recErr := rec.Record(ctx, entry); recErr != nil {
		metrics.AuditAppendFailures.Inc()
		slog.Warn("audit append failed after committed mutation",
			slog.String("action", action),
			slog.String("table", m.Table),
			slog.String("record_id", recordID),
			slog.Any("error", recErr),
		)
	}

	return result, nil
}

// Snapshot converts a model struct to the map form stored in audit
// old/new value columns, via a JSON round-trip so field names match the
// API's wire representation. Returns nil on any failure -- snapshots are
// best-effort and must never block a mutation.
func Snapshot(v any) map[string]any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
