// Package history provides the history tab: records grouped by day, a
// daily hours chart and week/month buckets.
package history

import (
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/j-veylop/fichaje-tui/internal/app"
	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/tracking"
	"github.com/j-veylop/fichaje-tui/internal/ui/forms"
)

// keyMap defines the key bindings specific to the history tab.
type keyMap struct {
	ToggleRange  key.Binding
	TogglePeriod key.Binding
	Overtime     key.Binding
	Select       key.Binding
	Delete       key.Binding
	DeleteAll    key.Binding
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	Cancel       key.Binding
}

// defaultKeyMap returns the default key bindings for the history tab.
func defaultKeyMap() keyMap {
	return keyMap{
		ToggleRange: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle chart range"),
		),
		TogglePeriod: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "day/week/month"),
		),
		Overtime: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "toggle overtime"),
		),
		Select: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete selected"),
		),
		DeleteAll: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete all"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Top: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "first"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "last"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear selection"),
		),
	}
}

// row is one line of the day list: a day header or a record.
type row struct {
	group  int
	record *tracking.Record
}

// confirmKind says what a completed confirmation deletes.
type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmSelected
	confirmAll
)

// Model represents the history tab state.
type Model struct {
	state  *app.State
	keys   keyMap
	now    func() time.Time
	width  int
	height int

	timeRange models.TimeRange
	period    tracking.Period

	groups   []tracking.DayGroup
	buckets  []tracking.Bucket
	rows     []row
	cursor   int
	selected map[string]bool

	form      *huh.Form
	confirmed bool
	confirm   confirmKind
	pending   []string
}

// New creates a new history model.
func New(state *app.State) *Model {
	m := &Model{
		state:     state,
		keys:      defaultKeyMap(),
		now:       time.Now,
		timeRange: models.TimeRange14Days,
		period:    tracking.PeriodDay,
		selected:  make(map[string]bool),
	}
	m.rebuild()
	return m
}

// Init initializes the history tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the history tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.SnapshotChangedMsg:
		m.rebuild()
		return m, nil

	case app.SessionChangedMsg:
		if msg.Session == nil {
			m.selected = make(map[string]bool)
			m.cursor = 0
			m.closeForm()
		}
		m.rebuild()
		return m, nil
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKeyMsg(keyMsg)
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (app.Tab, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleRange):
		m.timeRange = m.timeRange.Next()

	case key.Matches(msg, m.keys.TogglePeriod):
		m.period = m.period.Next()
		m.rebuild()

	case key.Matches(msg, m.keys.Up):
		m.move(-1)

	case key.Matches(msg, m.keys.Down):
		m.move(1)

	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
		m.move(0)

	case key.Matches(msg, m.keys.Bottom):
		m.cursor = len(m.rows) - 1
		m.move(0)

	case key.Matches(msg, m.keys.Select):
		if r := m.current(); r != nil && r.ID != "" {
			if m.selected[r.ID] {
				delete(m.selected, r.ID)
			} else {
				m.selected[r.ID] = true
			}
			m.move(1)
		}

	case key.Matches(msg, m.keys.Cancel):
		m.selected = make(map[string]bool)

	case key.Matches(msg, m.keys.Overtime):
		if r := m.current(); r != nil && r.ID != "" {
			id := r.ID
			return m, func() tea.Msg { return app.ToggleOvertimeMsg{ID: id} }
		}

	case key.Matches(msg, m.keys.Delete):
		ids := m.deleteTargets()
		if len(ids) == 0 {
			return m, nil
		}
		m.pending = ids
		return m, m.openConfirm(confirmSelected, fmt.Sprintf("Delete %d record(s)?", len(ids)))

	case key.Matches(msg, m.keys.DeleteAll):
		if len(m.state.Records()) == 0 {
			return m, nil
		}
		return m, m.openConfirm(confirmAll, "Delete your whole history? This cannot be undone.")
	}
	return m, nil
}

// deleteTargets is the selection, or the record under the cursor.
func (m *Model) deleteTargets() []string {
	if len(m.selected) > 0 {
		ids := make([]string, 0, len(m.selected))
		for id := range m.selected {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		return ids
	}
	if r := m.current(); r != nil && r.ID != "" {
		return []string{r.ID}
	}
	return nil
}

func (m *Model) openConfirm(kind confirmKind, title string) tea.Cmd {
	m.confirmed = false
	m.confirm = kind
	m.form = forms.Confirm(title, &m.confirmed)
	return tea.Batch(m.form.Init(), formActive(true))
}

func (m *Model) closeForm() {
	m.form = nil
	m.confirm = confirmNone
	m.pending = nil
}

func (m *Model) updateForm(msg tea.Msg) (app.Tab, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.closeForm()
		return m, formActive(false)
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		kind, ids := m.confirm, m.pending
		m.closeForm()
		if !m.confirmed {
			return m, formActive(false)
		}
		if kind == confirmAll {
			return m, tea.Batch(formActive(false), func() tea.Msg { return app.DeleteHistoryMsg{} })
		}
		for _, id := range ids {
			delete(m.selected, id)
		}
		return m, tea.Batch(formActive(false), func() tea.Msg { return app.DeleteRecordsMsg{IDs: ids} })

	case huh.StateAborted:
		m.closeForm()
		return m, formActive(false)
	}
	return m, cmd
}

func formActive(active bool) tea.Cmd {
	return func() tea.Msg { return app.FormActiveMsg{Active: active} }
}

// rebuild recomputes groups, buckets and rows from the shared state.
func (m *Model) rebuild() {
	var currentID string
	if r := m.current(); r != nil {
		currentID = r.ID
	}

	agg := m.state.Aggregator()
	records := m.state.Records()

	m.groups = agg.GroupByDay(records)
	m.buckets = nil
	if m.period != tracking.PeriodDay {
		m.buckets = agg.Buckets(records, m.period)
	}

	m.rows = nil
	known := make(map[string]bool)
	for gi := range m.groups {
		m.rows = append(m.rows, row{group: gi})
		for ri := range m.groups[gi].Records {
			rec := &m.groups[gi].Records[ri]
			m.rows = append(m.rows, row{group: gi, record: rec})
			known[rec.ID] = true
		}
	}

	for id := range m.selected {
		if !known[id] {
			delete(m.selected, id)
		}
	}

	// Keep the cursor on the same record when it still exists.
	if currentID != "" {
		for i, r := range m.rows {
			if r.record != nil && r.record.ID == currentID {
				m.cursor = i
				return
			}
		}
	}
	m.move(0)
}

// move steps the cursor by delta, skipping day headers.
func (m *Model) move(delta int) {
	if len(m.rows) == 0 {
		m.cursor = 0
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)

	dir := delta
	if dir == 0 {
		dir = 1
	}
	for i := m.cursor; i >= 0 && i < len(m.rows); i += dir {
		if m.rows[i].record != nil {
			m.cursor = i
			return
		}
	}
	for i := m.cursor; i >= 0 && i < len(m.rows); i -= dir {
		if m.rows[i].record != nil {
			m.cursor = i
			return
		}
	}
}

// current returns the record under the cursor.
func (m *Model) current() *tracking.Record {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].record
}

// SetSize sets the available size for the history tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.Select,
		m.keys.Overtime,
		m.keys.Delete,
		m.keys.DeleteAll,
		m.keys.TogglePeriod,
		m.keys.ToggleRange,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Select, m.keys.Cancel, m.keys.Overtime},
		{m.keys.Delete, m.keys.DeleteAll},
		{m.keys.TogglePeriod, m.keys.ToggleRange},
		{m.keys.Up, m.keys.Down, m.keys.Top, m.keys.Bottom},
	}
}
