// Package clock provides the clock tab: a live stopwatch for the open
// record and the today, week and month totals.
package clock

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/fichaje-tui/internal/app"
	"github.com/j-veylop/fichaje-tui/internal/config"
	"github.com/j-veylop/fichaje-tui/internal/ui/components"
)

const defaultShift = 8 * time.Hour

type keyMap struct {
	Toggle   key.Binding
	Overtime key.Binding
	Up       key.Binding
	Down     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "clock in/out"),
		),
		Overtime: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "mark running as overtime"),
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

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Overtime}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Toggle, k.Overtime}, {k.Up, k.Down}}
}

// Model represents the clock tab state.
type Model struct {
	state    *app.State
	keys     keyMap
	help     help.Model
	viewport viewport.Model
	shiftBar components.ShiftBar
	shift    time.Duration
	now      func() time.Time
	lastTick time.Time
	width    int
	height   int
	pending  bool
}

// New creates the clock tab. The shift length comes from cfg.
func New(state *app.State, cfg *config.Config) *Model {
	shift := defaultShift
	if cfg != nil && cfg.ShiftReminder > 0 {
		shift = cfg.ShiftReminder
	}
	m := &Model{
		state:    state,
		keys:     defaultKeyMap(),
		help:     help.New(),
		viewport: viewport.New(0, 0),
		shiftBar: components.NewShiftBar(),
		shift:    shift,
		now:      time.Now,
	}
	m.shiftBar.SetLabel("Shift")
	m.lastTick = m.now()
	return m
}

// Init initializes the clock tab.
func (m *Model) Init() tea.Cmd {
	return m.shiftBar.Init()
}

// Update handles messages for the clock tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case app.ClockTickMsg:
		m.lastTick = msg.Time
		cmds = append(cmds, m.syncShiftBar())

	case app.SnapshotChangedMsg:
		m.pending = false
		m.lastTick = m.now()
		cmds = append(cmds, m.syncShiftBar())

	case app.SessionChangedMsg:
		m.pending = false

	case app.ActionResultMsg:
		m.pending = false

	case components.AnimationTickMsg, progress.FrameMsg:
		var cmd tea.Cmd
		m.shiftBar, cmd = m.shiftBar.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (app.Tab, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Toggle):
		if m.pending {
			return m, nil
		}
		m.pending = true
		return m, func() tea.Msg { return app.ClockToggleMsg{} }

	case key.Matches(msg, m.keys.Overtime):
		cur := m.state.Current()
		if cur == nil || cur.ID == "" {
			return m, func() tea.Msg {
				return app.AddNotificationMsg{
					Type:     app.NotificationInfo,
					Message:  "Nothing is running",
					Duration: app.QuickNotificationDuration,
				}
			}
		}
		id := cur.ID
		return m, func() tea.Msg { return app.ToggleOvertimeMsg{ID: id} }

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
}

// elapsed is the live seconds of the open record, or 0.
func (m *Model) elapsed() int64 {
	cur := m.state.Current()
	if cur == nil {
		return 0
	}
	return cur.Elapsed(m.lastTick)
}

func (m *Model) syncShiftBar() tea.Cmd {
	return m.shiftBar.SetPercent(components.ShiftPercent(m.elapsed(), m.shift))
}

// SetSize sets the available size for the clock tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-6, 0)
	m.viewport.Height = max(height-2, 0)
	m.help.Width = m.viewport.Width
	m.shiftBar.SetWidth(max(width-40, 10))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return m.keys.ShortHelp()
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return m.keys.FullHelp()
}
