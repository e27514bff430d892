package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository defines the data access contract for the audit trail.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type Repository interface {
	// Insert appends a new entry. The audit_logs table is append-only;
	// there are intentionally no update or delete methods.
	Insert(ctx context.Context, entry *Entry) error

	// List returns paginated entries, most recent first, optionally
	// filtered by table name. Joins the users table to include the actor's
	// display name. Returns the entries, total count, and any error.
	List(ctx context.Context, table string, limit, offset int) ([]Entry, int, error)

	// ListByRecord returns the most recent entries for a specific record.
	// Used for per-entity change history in the admin panel.
	ListByRecord(ctx context.Context, table, recordID string, limit int) ([]Entry, error)
}

// repository implements Repository with MariaDB queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a new repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Insert appends a new audit entry. Snapshot maps are serialized to JSON
// before storage; nil snapshots are stored as SQL NULL.
func (r *repository) Insert(ctx context.Context, entry *Entry) error {
	query := `INSERT INTO audit_logs (actor_id, action, table_name, record_id, old_values, new_values, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	oldJSON, err := marshalSnapshot(entry.OldValues)
	if err != nil {
		return fmt.Errorf("marshaling old values: %w", err)
	}
	newJSON, err := marshalSnapshot(entry.NewValues)
	if err != nil {
		return fmt.Errorf("marshaling new values: %w", err)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, query,
		entry.ActorID, entry.Action, entry.TableName, entry.RecordID,
		oldJSON, newJSON, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting audit entry id: %w", err)
	}
	entry.ID = id

	return nil
}

// List returns audit entries ordered by most recent first, optionally
// filtered to one table. Joins users to include the actor display name.
func (r *repository) List(ctx context.Context, table string, limit, offset int) ([]Entry, int, error) {
	where := ""
	countArgs := []any{}
	if table != "" {
		where = ` WHERE a.table_name = ?`
		countArgs = append(countArgs, table)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM audit_logs a` + where
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	query := `SELECT a.id, a.actor_id, a.action, a.table_name, a.record_id,
	                 a.old_values, a.new_values, a.created_at,
	                 COALESCE(u.display_name, 'Unknown User') AS actor_name
	          FROM audit_logs a
	          LEFT JOIN users u ON u.id = a.actor_id` + where + `
	          ORDER BY a.created_at DESC, a.id DESC
	          LIMIT ? OFFSET ?`

	args := append(countArgs, limit, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// ListByRecord returns the most recent entries for one record of one table.
func (r *repository) ListByRecord(ctx context.Context, table, recordID string, limit int) ([]Entry, error) {
	query := `SELECT a.id, a.actor_id, a.action, a.table_name, a.record_id,
	                 a.old_values, a.new_values, a.created_at,
	                 COALESCE(u.display_name, 'Unknown User') AS actor_name
	          FROM audit_logs a
	          LEFT JOIN users u ON u.id = a.actor_id
	          WHERE a.table_name = ? AND a.record_id = ?
	          ORDER BY a.created_at DESC, a.id DESC
	          LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, table, recordID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing record audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// marshalSnapshot serializes a snapshot map, mapping nil to SQL NULL.
func marshalSnapshot(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// scanEntries scans rows from an audit_logs query into Entry slices.
// Expects columns: id, actor_id, action, table_name, record_id, old_values,
// new_values, created_at, actor_name.
func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var recordID sql.NullString
		var oldJSON, newJSON sql.NullString
		if err := rows.Scan(
			&e.ID, &e.ActorID, &e.Action, &e.TableName, &recordID,
			&oldJSON, &newJSON, &e.CreatedAt, &e.ActorName,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		e.RecordID = recordID.String
		e.OldValues = unmarshalSnapshot(oldJSON)
		e.NewValues = unmarshalSnapshot(newJSON)

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit rows: %w", err)
	}

	return entries, nil
}

// unmarshalSnapshot deserializes a JSON snapshot column if present.
// A corrupt value is surfaced as a marker instead of breaking the feed.
func unmarshalSnapshot(v sql.NullString) map[string]any {
	if !v.Valid || v.String == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(v.String), &m); err != nil {
		return map[string]any{"_parse_error": "invalid JSON"}
	}
	return m
}
