package db

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/fichaje-tui/internal/models"
)

func ts(s string) models.Timestamp {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return models.NewTimestamp(t)
}

func closedRecord(id, start, end string) models.Fichaje {
	e := ts(end)
	hours := decimal.NewFromFloat(e.Sub(ts(start).Time).Hours())
	amount := hours.Mul(decimal.NewFromInt(10))
	return models.Fichaje{
		ID:            id,
		Date:          start[:10],
		Start:         ts(start),
		End:           &e,
		DurationHours: &hours,
		Amount:        &amount,
	}
}

func TestReplaceRecords(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	first := []models.Fichaje{
		closedRecord("a", "2024-03-04T08:00:00Z", "2024-03-04T12:00:00Z"),
		closedRecord("b", "2024-03-05T08:00:00Z", "2024-03-05T10:30:00Z"),
	}
	require.NoError(t, db.ReplaceRecords("u1", first, models.HistoryTotals{Week: decimal.RequireFromString("6.5")}))
	require.NoError(t, db.UpsertRecord("u2", closedRecord("z", "2024-03-04T08:00:00Z", "2024-03-04T09:00:00Z")))

	open := models.Fichaje{ID: "c", Start: ts("2024-03-06T08:00:00Z"), Overtime: true}
	second := []models.Fichaje{first[1], open}
	require.NoError(t, db.ReplaceRecords("u1", second, models.HistoryTotals{}))

	got, err := db.Records("u1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "c", got[0].ID, "newest first")
	assert.True(t, got[0].Open())
	assert.True(t, got[0].Overtime)
	assert.Nil(t, got[0].DurationHours)
	assert.Equal(t, models.Ref("u1"), got[0].User)

	assert.Equal(t, "b", got[1].ID)
	assert.False(t, got[1].Open())
	assert.True(t, got[1].End.Equal(ts("2024-03-05T10:30:00Z").Time))
	assert.Equal(t, "2.5", got[1].DurationHours.String())
	assert.Equal(t, "25", got[1].Amount.String())
	assert.Equal(t, "2024-03-05", got[1].Date)

	other, err := db.Records("u2")
	require.NoError(t, err)
	assert.Len(t, other, 1, "other owners are untouched")
}

func TestRecordsKeepMalformedStart(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	require.NoError(t, db.UpsertRecord("u1", models.Fichaje{ID: "bad"}))
	require.NoError(t, db.UpsertRecord("u1", closedRecord("ok", "2024-03-04T08:00:00Z", "2024-03-04T09:00:00Z")))

	got, err := db.Records("u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ok", got[0].ID)
	assert.True(t, got[1].Start.IsZero())
	assert.False(t, got[1].ToRecord().Valid())
}

func TestRecordsKeepMalformedEndClosed(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	end := models.ParseTimestamp("not-a-time")
	hours := decimal.NewFromInt(4)
	require.NoError(t, db.UpsertRecord("u1", models.Fichaje{
		ID:            "bad-end",
		Start:         ts("2024-03-04T08:00:00Z"),
		End:           &end,
		DurationHours: &hours,
	}))

	got, err := db.Records("u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].End)
	assert.True(t, got[0].End.Malformed())
	assert.False(t, got[0].Open(), "an unreadable end must not reopen the record")
	assert.False(t, got[0].ToRecord().Valid())
}

func TestUpsertRecordUpdates(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	rec := models.Fichaje{ID: "a", Start: ts("2024-03-04T08:00:00Z")}
	require.NoError(t, db.UpsertRecord("u1", rec))

	rec = closedRecord("a", "2024-03-04T08:00:00Z", "2024-03-04T16:00:00Z")
	rec.Overtime = true
	require.NoError(t, db.UpsertRecord("u1", rec))

	got, err := db.Records("u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Open())
	assert.True(t, got[0].Overtime)
	assert.Equal(t, "8", got[0].DurationHours.String())
}

func TestDeleteRecordAndOwner(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	require.NoError(t, db.ReplaceRecords("u1", []models.Fichaje{
		closedRecord("a", "2024-03-04T08:00:00Z", "2024-03-04T12:00:00Z"),
		closedRecord("b", "2024-03-05T08:00:00Z", "2024-03-05T12:00:00Z"),
	}, models.HistoryTotals{}))
	require.NoError(t, db.InsertClockEvent(&models.ClockEvent{Owner: "u1", Action: models.ActionClockIn}))

	require.NoError(t, db.DeleteRecord("u1", "a"))
	got, err := db.Records("u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	require.NoError(t, db.DeleteOwner("u1"))
	got, err = db.Records("u1")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, ok, err := db.LastSync("u1")
	require.NoError(t, err)
	assert.False(t, ok)

	events, err := db.RecentClockEvents("u1", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLastSync(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	_, ok, err := db.LastSync("u1")
	require.NoError(t, err)
	assert.False(t, ok)

	before := time.Now().Add(-time.Second)
	totals := models.HistoryTotals{Week: decimal.RequireFromString("12.25"), Month: decimal.RequireFromString("40")}
	require.NoError(t, db.ReplaceRecords("u1", nil, totals))

	state, ok, err := db.LastSync("u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, state.SyncedAt.After(before), "synced at %v", state.SyncedAt)
	assert.Equal(t, "12.25", state.Totals.Week.String())
	assert.Equal(t, "40", state.Totals.Month.String())
}

func TestClockEvents(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	base := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	actions := []models.ClockAction{models.ActionClockIn, models.ActionClockOut, models.ActionOvertimeOn}
	for i, action := range actions {
		ev := &models.ClockEvent{Owner: "u1", RecordID: "a", Action: action, At: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, db.InsertClockEvent(ev))
		assert.NotZero(t, ev.ID)
	}
	require.NoError(t, db.InsertClockEvent(&models.ClockEvent{Owner: "u2", Action: models.ActionDeleteAll}))

	events, err := db.RecentClockEvents("u1", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.ActionOvertimeOn, events[0].Action)
	assert.Equal(t, models.ActionClockOut, events[1].Action)
	assert.True(t, events[0].At.Equal(base.Add(2*time.Hour)))
	assert.Equal(t, "a", events[0].RecordID)
}

func TestLegacyTimestampMigration(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		"INSERT INTO records (id, owner, start_at, end_at) VALUES (?, ?, ?, ?)",
		"legacy", "u1", "2024-03-04 08:00:00 +0000 UTC", "2024-03-04 12:00:00 +0000 UTC")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "PRAGMA user_version = 2")
	require.NoError(t, err)
	require.NoError(t, db.migrate())

	got, err := db.Records("u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Start.Equal(time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)))
	assert.True(t, got[0].End.Equal(time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)))

	version, err := db.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)
}
