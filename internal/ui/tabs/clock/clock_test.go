package clock

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/j-veylop/fichaje-tui/internal/app"
	"github.com/j-veylop/fichaje-tui/internal/config"
	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/services"
)

var now = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC) // a Wednesday

func newState(current *models.Fichaje, records ...models.Fichaje) *app.State {
	state := app.NewState()
	state.SetLocation(time.UTC)
	state.SetLoading("initial", false)
	state.SetSession(&models.Session{
		Token: "t",
		User: models.User{
			ID:         "u1",
			Email:      "ana@example.com",
			HourlyRate: decimal.NewFromInt(10),
			Currency:   "EUR - Euro",
		},
	})
	state.SetSnapshot(services.Snapshot{FetchedAt: now, Current: current, Records: records})
	return state
}

func closed(start time.Time, hours int64, overtime bool) models.Fichaje {
	end := models.NewTimestamp(start.Add(time.Duration(hours) * time.Hour))
	h := decimal.NewFromInt(hours)
	return models.Fichaje{
		ID:            start.Format("0102-15"),
		Start:         models.NewTimestamp(start),
		End:           &end,
		DurationHours: &h,
		Overtime:      overtime,
	}
}

func newModel(state *app.State) *Model {
	m := New(state, &config.Config{ShiftReminder: 2 * time.Hour})
	m.now = func() time.Time { return now }
	m.lastTick = now
	m.SetSize(140, 60)
	return m
}

func TestNew(t *testing.T) {
	m := New(app.NewState(), nil)
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.shift != 8*time.Hour {
		t.Errorf("shift = %v, want 8h", m.shift)
	}
	if m.Init() != nil {
		t.Error("Init should not start anything")
	}
}

func TestModel_ToggleSendsClockToggle(t *testing.T) {
	m := newModel(newState(nil))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if cmd == nil {
		t.Fatal("space should clock in")
	}
	if _, ok := cmd().(app.ClockToggleMsg); !ok {
		t.Error("expected ClockToggleMsg")
	}

	if _, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("a second toggle while the first runs should be ignored")
	}

	m.Update(app.ActionResultMsg{Action: app.ActionClockIn})
	if _, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Error("toggle should work again after the result")
	}
}

func TestModel_OvertimeKey(t *testing.T) {
	m := newModel(newState(nil))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	if n, ok := cmd().(app.AddNotificationMsg); !ok || n.Type != app.NotificationInfo {
		t.Error("o without a running record should only inform")
	}

	running := &models.Fichaje{ID: "run", Start: models.NewTimestamp(now.Add(-time.Hour))}
	m = newModel(newState(running))
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	msg, ok := cmd().(app.ToggleOvertimeMsg)
	if !ok || msg.ID != "run" {
		t.Errorf("expected ToggleOvertimeMsg for run, got %#v", msg)
	}
}

func TestModel_StopwatchFollowsTicks(t *testing.T) {
	running := &models.Fichaje{ID: "run", Start: models.NewTimestamp(now.Add(-time.Hour))}
	m := newModel(newState(running))

	if !strings.Contains(m.View(), "01:00:00") {
		t.Error("stopwatch should show one hour")
	}

	m.Update(app.ClockTickMsg{Time: now.Add(61 * time.Second)})
	view := m.View()
	if !strings.Contains(view, "01:01:01") {
		t.Error("stopwatch should move with the tick")
	}
	if !strings.Contains(view, "RUNNING") {
		t.Error("running badge missing")
	}
	if !strings.Contains(view, "left") {
		t.Error("shift bar should show the remaining time")
	}

	m.Update(app.ClockTickMsg{Time: now.Add(3 * time.Hour)})
	if !strings.Contains(m.View(), "over") {
		t.Error("past the shift length the bar should show overtime")
	}
}

func TestModel_ViewIdle(t *testing.T) {
	m := newModel(newState(nil))
	view := m.View()
	if !strings.Contains(view, "00:00:00") {
		t.Error("idle stopwatch should read zero")
	}
	if !strings.Contains(view, "Not clocked in") {
		t.Error("idle hint missing")
	}
}

func TestModel_ViewTotals(t *testing.T) {
	monday := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	m := newModel(newState(nil,
		closed(now.Add(-3*time.Hour), 2, false),
		closed(monday, 3, true),
		closed(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 4, false),
	))

	view := m.View()
	for _, want := range []string{"2.00 h", "€20.00", "5.00 h", "€50.00", "9.00 h", "€90.00", "3.00 h overtime"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
	if !strings.Contains(view, "Mon") {
		t.Error("weekly pattern missing")
	}
}

func TestModel_SnapshotResetsPending(t *testing.T) {
	m := newModel(newState(nil))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.pending {
		t.Fatal("toggle should mark the clock busy")
	}
	m.Update(app.SnapshotChangedMsg{})
	if m.pending {
		t.Error("a new snapshot should clear the busy flag")
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState(), nil)
	if len(m.ShortHelp()) == 0 {
		t.Error("ShortHelp should not be empty")
	}
	if len(m.FullHelp()) == 0 {
		t.Error("FullHelp should not be empty")
	}
}
