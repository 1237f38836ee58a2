package db

import (
	"context"
	"fmt"
)

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS records (
		id TEXT NOT NULL,
		owner TEXT NOT NULL,
		work_date TEXT,
		start_at TEXT,
		end_at TEXT,
		duration_hours TEXT,
		amount TEXT,
		overtime INTEGER NOT NULL DEFAULT 0,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (owner, id)
	);
	CREATE INDEX IF NOT EXISTS idx_records_owner_start ON records(owner, start_at);

	CREATE TABLE IF NOT EXISTS sync_state (
		owner TEXT PRIMARY KEY,
		synced_at DATETIME NOT NULL,
		week_total TEXT,
		month_total TEXT
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS clock_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner TEXT NOT NULL,
		record_id TEXT,
		action TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_clock_events_owner ON clock_events(owner, timestamp);
	`,
	// Older builds stored Go's default time String() in start_at/end_at.
	`
	UPDATE records
	SET start_at = REPLACE(SUBSTR(start_at, 1, 19), ' ', 'T') || 'Z'
	WHERE length(start_at) > 19 AND start_at LIKE '% +0000 UTC';
	UPDATE records
	SET end_at = REPLACE(SUBSTR(end_at, 1, 19), ' ', 'T') || 'Z'
	WHERE length(end_at) > 19 AND end_at LIKE '% +0000 UTC';
	`,
}

// SchemaVersion returns the number of applied migrations.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	if err := db.QueryRowContext(context.Background(), "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// migrate runs the migrations that have not been applied yet.
func (db *DB) migrate() error {
	version, err := db.SchemaVersion()
	if err != nil {
		return err
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.BeginTx(context.Background(), nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(context.Background(), migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(context.Background(), fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
