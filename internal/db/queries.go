package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/fichaje-tui/internal/logger"
	"github.com/j-veylop/fichaje-tui/internal/models"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	// instantLayout is fixed width so stored instants sort as text.
	instantLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SyncState describes the last successful history fetch of an owner.
type SyncState struct {
	SyncedAt time.Time
	Totals   models.HistoryTotals
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const upsertRecordQuery = `
	INSERT INTO records (
		id, owner, work_date, start_at, end_at, duration_hours, amount, overtime, fetched_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(owner, id) DO UPDATE SET
		work_date = excluded.work_date,
		start_at = excluded.start_at,
		end_at = excluded.end_at,
		duration_hours = excluded.duration_hours,
		amount = excluded.amount,
		overtime = excluded.overtime,
		fetched_at = excluded.fetched_at
`

func upsertRecord(ctx context.Context, ex execer, owner string, f *models.Fichaje, fetchedAt time.Time) error {
	var end sql.NullString
	switch {
	case f.End != nil && f.End.Malformed():
		end = nullString(models.MalformedMarker)
	case !f.Open():
		end = nullString(formatInstant(f.End.Time))
	}
	overtime := 0
	if f.Overtime {
		overtime = 1
	}

	_, err := ex.ExecContext(ctx, upsertRecordQuery,
		f.ID,
		owner,
		nullString(f.Date),
		nullString(formatInstant(f.Start.Time)),
		end,
		nullDecimal(f.DurationHours),
		nullDecimal(f.Amount),
		overtime,
		fetchedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", f.ID, err)
	}
	return nil
}

// ReplaceRecords swaps the cached history of owner for list and stamps the
// sync state.
func (db *DB) ReplaceRecords(owner string, list []models.Fichaje, totals models.HistoryTotals) error {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE owner = ?", owner); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	now := time.Now()
	for i := range list {
		if err := upsertRecord(ctx, tx, owner, &list[i], now); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_state (owner, synced_at, week_total, month_total)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET
			synced_at = excluded.synced_at,
			week_total = excluded.week_total,
			month_total = excluded.month_total
	`, owner, now.UTC().Format(timeLayout), totals.Week.String(), totals.Month.String())
	if err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

// UpsertRecord inserts or updates one cached record.
func (db *DB) UpsertRecord(owner string, f models.Fichaje) error {
	return upsertRecord(context.Background(), db, owner, &f, time.Now())
}

// DeleteRecord removes one cached record.
func (db *DB) DeleteRecord(owner, id string) error {
	_, err := db.ExecContext(context.Background(), "DELETE FROM records WHERE owner = ? AND id = ?", owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// DeleteOwner removes every cached row of owner.
func (db *DB) DeleteOwner(owner string) error {
	ctx := context.Background()
	for _, query := range []string{
		"DELETE FROM records WHERE owner = ?",
		"DELETE FROM sync_state WHERE owner = ?",
		"DELETE FROM clock_events WHERE owner = ?",
	} {
		if _, err := db.ExecContext(ctx, query, owner); err != nil {
			return fmt.Errorf("failed to delete owner data: %w", err)
		}
	}
	return nil
}

// Records returns the cached history of owner, newest first. Records
// without a start sort last.
func (db *DB) Records(owner string) ([]models.Fichaje, error) {
	query := `
		SELECT id, work_date, start_at, end_at, duration_hours, amount, overtime
		FROM records
		WHERE owner = ?
		ORDER BY start_at IS NULL, start_at DESC, id
	`

	rows, err := db.QueryContext(context.Background(), query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var list []models.Fichaje
	for rows.Next() {
		var (
			f                                     models.Fichaje
			date, start, end, durationStr, amtStr sql.NullString
			overtime                              int
		)
		if err := rows.Scan(&f.ID, &date, &start, &end, &durationStr, &amtStr, &overtime); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		f.User = models.Ref(owner)
		f.Date = date.String
		f.Start = models.NewTimestamp(models.ParseTime(start.String))
		if end.Valid && end.String != "" {
			ts := models.ParseTimestamp(end.String)
			f.End = &ts
		}
		f.DurationHours = parseDecimal(durationStr)
		f.Amount = parseDecimal(amtStr)
		f.Overtime = overtime != 0
		list = append(list, f)
	}

	return list, rows.Err()
}

// LastSync returns the sync state of owner. ok is false before the first
// successful sync.
func (db *DB) LastSync(owner string) (state SyncState, ok bool, err error) {
	var syncedAt string
	var week, month sql.NullString
	err = db.QueryRowContext(context.Background(),
		"SELECT synced_at, week_total, month_total FROM sync_state WHERE owner = ?", owner,
	).Scan(&syncedAt, &week, &month)
	if errors.Is(err, sql.ErrNoRows) {
		return SyncState{}, false, nil
	}
	if err != nil {
		return SyncState{}, false, fmt.Errorf("failed to query sync state: %w", err)
	}

	state.SyncedAt = models.ParseTime(syncedAt)
	if d := parseDecimal(week); d != nil {
		state.Totals.Week = *d
	}
	if d := parseDecimal(month); d != nil {
		state.Totals.Month = *d
	}
	return state, true, nil
}

// InsertClockEvent appends to the local activity log.
func (db *DB) InsertClockEvent(ev *models.ClockEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	result, err := db.ExecContext(context.Background(),
		"INSERT INTO clock_events (owner, record_id, action, timestamp) VALUES (?, ?, ?, ?)",
		ev.Owner, nullString(ev.RecordID), string(ev.Action), at.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert clock event: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		ev.ID = id
	}
	return nil
}

// RecentClockEvents returns the latest activity of owner, newest first.
func (db *DB) RecentClockEvents(owner string, limit int) ([]models.ClockEvent, error) {
	rows, err := db.QueryContext(context.Background(), `
		SELECT id, owner, record_id, action, timestamp
		FROM clock_events
		WHERE owner = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query clock events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var events []models.ClockEvent
	for rows.Next() {
		var ev models.ClockEvent
		var recordID sql.NullString
		var action, at string
		if err := rows.Scan(&ev.ID, &ev.Owner, &recordID, &action, &at); err != nil {
			return nil, fmt.Errorf("failed to scan clock event: %w", err)
		}
		ev.RecordID = recordID.String
		ev.Action = models.ClockAction(action)
		ev.At = models.ParseTime(at)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(instantLayout)
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDecimal(s sql.NullString) *decimal.Decimal {
	if !s.Valid || s.String == "" {
		return nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		logger.Warn("ignoring malformed cached decimal", "value", s.String, "error", err)
		return nil
	}
	return &d
}
