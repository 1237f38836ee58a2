package info

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/fichaje-tui/internal/app"
	"github.com/j-veylop/fichaje-tui/internal/config"
	"github.com/j-veylop/fichaje-tui/internal/models"
)

type fakeSource struct {
	events []models.ClockEvent
	err    error
	calls  int
}

func (f *fakeSource) RecentActivity(limit int) ([]models.ClockEvent, error) {
	f.calls++
	if len(f.events) > limit {
		return f.events[:limit], f.err
	}
	return f.events, f.err
}

func loggedIn() *app.State {
	state := app.NewState()
	state.SetLocation(time.UTC)
	state.SetSession(&models.Session{Token: "t", User: models.User{ID: "u1", Email: "ana@example.com"}})
	return state
}

func testConfig() *config.Config {
	return &config.Config{
		APIURL:          "http://localhost:4000/api",
		DatabasePath:    "/tmp/fichaje.db",
		SessionPath:     "/tmp/session.json",
		LogPath:         "/tmp/fichaje.log",
		Location:        time.UTC,
		RefreshInterval: 30 * time.Second,
		ShiftReminder:   8 * time.Hour,
	}
}

func TestNew(t *testing.T) {
	m := New(app.NewState(), &config.Config{}, nil)
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() != nil {
		t.Error("Init should return nil")
	}
}

func TestModel_ViewConfig(t *testing.T) {
	m := New(app.NewState(), testConfig(), nil)
	m.SetSize(100, 80)

	view := m.View()
	for _, want := range []string{"http://localhost:4000/api", "/tmp/fichaje.db", "/tmp/session.json", "UTC", "30s", "8h0m0s", "About fichaje", "Log in to see"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestModel_ViewWithoutConfig(t *testing.T) {
	m := New(app.NewState(), nil, nil)
	m.SetSize(100, 60)
	if !strings.Contains(m.View(), "Configuration not loaded") {
		t.Error("missing config hint")
	}
}

func TestModel_Activity(t *testing.T) {
	src := &fakeSource{events: []models.ClockEvent{
		{ID: 2, At: time.Date(2024, 3, 6, 17, 0, 0, 0, time.UTC), Action: models.ActionClockOut, RecordID: "r1"},
		{ID: 1, At: time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC), Action: models.ActionClockIn, RecordID: "r1"},
	}}
	m := New(loggedIn(), testConfig(), src)
	m.SetSize(100, 80)

	view := m.View()
	for _, want := range []string{"06 Mar 17:00:00", "clock-out", "clock-in", "r1", "ana@example.com"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}

	before := src.calls
	m.Update(app.SnapshotChangedMsg{})
	if src.calls != before+1 {
		t.Error("snapshot change should reload the activity")
	}
}

func TestModel_ActivityEmptyAndError(t *testing.T) {
	src := &fakeSource{}
	m := New(loggedIn(), testConfig(), src)
	m.SetSize(100, 80)
	if !strings.Contains(m.View(), "Nothing clocked") {
		t.Error("empty activity hint missing")
	}

	src.err = errors.New("database is locked")
	m.Update(app.SessionChangedMsg{})
	if !strings.Contains(m.View(), "database is locked") {
		t.Error("activity error not shown")
	}
}

func TestModel_NoActivityWhenLoggedOut(t *testing.T) {
	src := &fakeSource{}
	New(app.NewState(), testConfig(), src)
	if src.calls != 0 {
		t.Error("activity should not be read while logged out")
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState(), nil, nil)
	if len(m.ShortHelp()) == 0 || len(m.FullHelp()) == 0 {
		t.Error("help should not be empty")
	}
}
