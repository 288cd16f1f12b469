package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lockme-app/lockme/internal/events"
)

// SQLiteRecorder stores activity records in a local SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteRecorder opens (and initializes) the activity database.
func NewSQLiteRecorder(dbPath string, logger *events.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	rec := &SQLiteRecorder{
		db:     db,
		logger: logger.WithField("component", "audit_store"),
	}

	if err := rec.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return rec, nil
}

// initialize creates the activity table.
func (r *SQLiteRecorder) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS activity (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        kind TEXT NOT NULL,
        item_id TEXT NOT NULL,
        name TEXT NOT NULL,
        outcome TEXT NOT NULL,
        error TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMP NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_activity_created ON activity(created_at);
    `

	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Record inserts one activity entry.
func (r *SQLiteRecorder) Record(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO activity (kind, item_id, name, outcome, error, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `, rec.Kind, rec.ItemID, rec.Name, rec.Outcome, rec.Error, rec.Time.UTC())

	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"kind":    rec.Kind,
		"item_id": rec.ItemID,
		"outcome": rec.Outcome,
	}).Debug("Recorded activity")

	return nil
}

// List returns the most recent records, newest first.
func (r *SQLiteRecorder) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT kind, item_id, name, outcome, error, created_at
        FROM activity
        ORDER BY id DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Kind, &rec.ItemID, &rec.Name, &rec.Outcome, &rec.Error, &rec.Time); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
