package history

import (
	"reflect"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/j-veylop/fichaje-tui/internal/app"
	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/services"
)

var now = time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)

func closed(id string, start time.Time, hours int64, overtime bool) models.Fichaje {
	end := models.NewTimestamp(start.Add(time.Duration(hours) * time.Hour))
	h := decimal.NewFromInt(hours)
	return models.Fichaje{
		ID:            id,
		Start:         models.NewTimestamp(start),
		End:           &end,
		DurationHours: &h,
		Overtime:      overtime,
	}
}

func newState(records ...models.Fichaje) *app.State {
	state := app.NewState()
	state.SetLocation(time.UTC)
	state.SetLoading("initial", false)
	state.SetSession(&models.Session{
		Token: "t",
		User:  models.User{ID: "u1", HourlyRate: decimal.NewFromInt(10), Currency: "EUR - Euro"},
	})
	state.SetSnapshot(services.Snapshot{FetchedAt: now, Records: records})
	return state
}

func sample() []models.Fichaje {
	return []models.Fichaje{
		closed("a", time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC), 4, false),
		closed("b", time.Date(2024, 3, 6, 14, 0, 0, 0, time.UTC), 2, true),
		closed("c", time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), 8, false),
	}
}

func newModel(state *app.State) *Model {
	m := New(state)
	m.now = func() time.Time { return now }
	m.SetSize(120, 60)
	return m
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd = m.Update(msg)
	}
	return cmd
}

// drive runs cmd and feeds every message back into the model, the way
// the Bubble Tea runtime would, until nothing is left. Messages meant for
// the app model are returned instead.
func drive(m *Model, cmd tea.Cmd) []tea.Msg {
	var out []tea.Msg
	queue := []tea.Cmd{cmd}
	cmdType := reflect.TypeOf(tea.Cmd(nil))
	for steps := 0; len(queue) > 0 && steps < 100; steps++ {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if msg == nil {
			continue
		}
		v := reflect.ValueOf(msg)
		if v.Kind() == reflect.Slice && v.Type().Elem() == cmdType {
			for i := range v.Len() {
				queue = append(queue, v.Index(i).Interface().(tea.Cmd))
			}
			continue
		}
		if v.Type().PkgPath() == reflect.TypeOf(app.FormActiveMsg{}).PkgPath() {
			out = append(out, msg)
			continue
		}
		_, next := m.Update(msg)
		queue = append(queue, next)
	}
	return out
}

func TestNew(t *testing.T) {
	m := New(app.NewState())
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() != nil {
		t.Error("Init should return nil")
	}
	if m.current() != nil {
		t.Error("no rows without records")
	}
}

func TestModel_Update(t *testing.T) {
	m := New(app.NewState())
	updated, _ := m.Update(nil)
	if updated == nil {
		t.Error("Update returned nil model")
	}
}

func TestModel_RowsGroupedByDay(t *testing.T) {
	m := newModel(newState(sample()...))

	if len(m.groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(m.groups))
	}
	// header, b, a, header, c
	if len(m.rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(m.rows))
	}
	if r := m.current(); r == nil || r.ID != "b" {
		t.Fatalf("cursor should start on the newest record, got %+v", r)
	}

	press(m, "down")
	if m.current().ID != "a" {
		t.Errorf("down should move to a, got %s", m.current().ID)
	}
	press(m, "down")
	if m.current().ID != "c" {
		t.Errorf("down should skip the day header, got %s", m.current().ID)
	}
	press(m, "down")
	if m.current().ID != "c" {
		t.Errorf("cursor should stay on the last record, got %s", m.current().ID)
	}
	press(m, "g")
	if m.current().ID != "b" {
		t.Errorf("g should jump to the first record, got %s", m.current().ID)
	}
}

func TestModel_View(t *testing.T) {
	m := newModel(newState(sample()...))
	view := m.View()
	for _, want := range []string{
		"History",
		"Wed 06 Mar 2024",
		"6.00 h",
		"€60.00",
		"Mon 04 Mar 2024",
		"09:00 → 13:00",
		"OT",
		"Daily hours",
		"Regular",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestModel_ViewEmptyAndLoading(t *testing.T) {
	state := app.NewState()
	m := New(state)
	m.SetSize(80, 24)
	if !strings.Contains(m.View(), "Loading") {
		t.Error("initial view should be loading")
	}
	state.SetLoading("initial", false)
	if !strings.Contains(m.View(), "No records yet") {
		t.Error("empty view missing")
	}
}

func TestModel_PeriodBuckets(t *testing.T) {
	m := newModel(newState(sample()...))

	press(m, "p")
	if len(m.buckets) != 1 {
		t.Fatalf("week buckets = %d, want 1", len(m.buckets))
	}
	if !m.buckets[0].Totals.Hours.Equal(decimal.NewFromInt(14)) {
		t.Errorf("week hours = %s, want 14", m.buckets[0].Totals.Hours)
	}
	if !strings.Contains(m.View(), "2024-W10") {
		t.Error("week bucket key missing from view")
	}

	press(m, "p")
	if !strings.Contains(m.View(), "2024-03") {
		t.Error("month bucket key missing from view")
	}

	press(m, "p")
	if m.buckets != nil {
		t.Error("day view should not keep buckets")
	}
}

func TestModel_ToggleRange(t *testing.T) {
	m := newModel(newState(sample()...))
	press(m, "t")
	if m.timeRange != models.TimeRange30Days {
		t.Errorf("range = %v, want 30 days", m.timeRange)
	}
	if !strings.Contains(m.View(), "last 30 days") {
		t.Error("chart caption should follow the range")
	}
}

func TestModel_OvertimeKey(t *testing.T) {
	m := newModel(newState(sample()...))
	cmd := press(m, "o")
	if cmd == nil {
		t.Fatal("o should toggle overtime")
	}
	msg, ok := cmd().(app.ToggleOvertimeMsg)
	if !ok || msg.ID != "b" {
		t.Errorf("expected ToggleOvertimeMsg{b}, got %#v", msg)
	}
}

func TestModel_MultiSelectDelete(t *testing.T) {
	m := newModel(newState(sample()...))

	press(m, "space", "space")
	if len(m.selected) != 2 || !m.selected["a"] || !m.selected["b"] {
		t.Fatalf("selected = %v, want a and b", m.selected)
	}
	if !strings.Contains(m.View(), "2 selected") {
		t.Error("selection count missing")
	}

	opened := drive(m, press(m, "d"))
	if m.form == nil {
		t.Fatal("d should ask for confirmation")
	}
	if !strings.Contains(m.View(), "Delete 2 record(s)?") {
		t.Error("confirmation title missing")
	}
	var active bool
	for _, msg := range opened {
		if fa, ok := msg.(app.FormActiveMsg); ok && fa.Active {
			active = true
		}
	}
	if !active {
		t.Error("opening the form should tell the app")
	}

	var deleted []string
	for _, msg := range drive(m, press(m, "y")) {
		if del, ok := msg.(app.DeleteRecordsMsg); ok {
			deleted = del.IDs
		}
	}
	if m.form != nil {
		t.Error("form should close after confirming")
	}
	if strings.Join(deleted, ",") != "a,b" {
		t.Errorf("deleted = %v, want [a b]", deleted)
	}
	if len(m.selected) != 0 {
		t.Error("selection should be cleared")
	}
}

func TestModel_DeleteCancelled(t *testing.T) {
	m := newModel(newState(sample()...))
	drive(m, press(m, "d"))
	if m.form == nil {
		t.Fatal("d should ask for confirmation")
	}
	msgs := drive(m, press(m, "esc"))
	if m.form != nil {
		t.Error("esc should close the form")
	}
	for _, msg := range msgs {
		if _, ok := msg.(app.DeleteRecordsMsg); ok {
			t.Error("cancelled delete must not send anything")
		}
	}
}

func TestModel_DeleteAll(t *testing.T) {
	m := newModel(newState(sample()...))
	drive(m, press(m, "D"))
	if m.confirm != confirmAll {
		t.Fatal("D should ask to delete everything")
	}
	var all bool
	for _, msg := range drive(m, press(m, "y")) {
		if _, ok := msg.(app.DeleteHistoryMsg); ok {
			all = true
		}
	}
	if !all {
		t.Error("confirming should send DeleteHistoryMsg")
	}
}

func TestModel_SnapshotPrunesSelection(t *testing.T) {
	state := newState(sample()...)
	m := newModel(state)
	press(m, "down", "space")
	if !m.selected["a"] {
		t.Fatal("a should be selected")
	}

	state.SetSnapshot(services.Snapshot{FetchedAt: now, Records: sample()[2:]})
	m.Update(app.SnapshotChangedMsg{})
	if len(m.selected) != 0 {
		t.Error("deleted records must leave the selection")
	}
	if m.current().ID != "c" {
		t.Errorf("cursor = %s, want c", m.current().ID)
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState())
	if len(m.ShortHelp()) == 0 {
		t.Error("ShortHelp empty")
	}
	if len(m.FullHelp()) == 0 {
		t.Error("FullHelp empty")
	}
}
