// Package earnings provides the earnings tab: the amount earned each month
// of a calendar year and the annual total.
package earnings

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/fichaje-tui/internal/app"
	"github.com/j-veylop/fichaje-tui/internal/tracking"
)

type keyMap struct {
	PrevYear    key.Binding
	NextYear    key.Binding
	CurrentYear key.Binding
	Up          key.Binding
	Down        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		PrevYear: key.NewBinding(
			key.WithKeys("[", "h"),
			key.WithHelp("[", "previous year"),
		),
		NextYear: key.NewBinding(
			key.WithKeys("]", "l"),
			key.WithHelp("]", "next year"),
		),
		CurrentYear: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "this year"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// Model represents the earnings tab state.
type Model struct {
	state    *app.State
	keys     keyMap
	viewport viewport.Model
	now      func() time.Time
	width    int
	height   int

	year       int
	earnings   tracking.MonthlyEarnings
	projection tracking.MonthProjection
}

// New creates the earnings tab showing the current year.
func New(state *app.State) *Model {
	m := &Model{
		state:    state,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
		now:      time.Now,
	}
	m.year = m.thisYear()
	m.recompute()
	return m
}

// Init initializes the earnings tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the earnings tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.SnapshotChangedMsg, app.SessionChangedMsg:
		m.recompute()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.PrevYear):
			m.year--
			m.recompute()
		case key.Matches(msg, m.keys.NextYear):
			if m.year < m.thisYear() {
				m.year++
				m.recompute()
			}
		case key.Matches(msg, m.keys.CurrentYear):
			m.year = m.thisYear()
			m.recompute()
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) thisYear() int {
	return m.now().In(m.state.Location()).Year()
}

func (m *Model) recompute() {
	agg, records := m.state.Aggregator(), m.state.Records()
	m.earnings = agg.MonthlyEarnings(records, m.year)
	m.projection = agg.ProjectMonth(records, m.now())
}

// SetSize sets the available size for the earnings tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-6, 0)
	m.viewport.Height = max(height-2, 0)
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.PrevYear, m.keys.NextYear, m.keys.CurrentYear}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.PrevYear, m.keys.NextYear, m.keys.CurrentYear},
		{m.keys.Up, m.keys.Down},
	}
}
