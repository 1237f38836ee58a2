// Package profile provides the profile tab: the logged-in user, the
// session, and the account actions.
package profile

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/j-veylop/fichaje-tui/internal/app"
	"github.com/j-veylop/fichaje-tui/internal/services/backend"
	"github.com/j-veylop/fichaje-tui/internal/ui/forms"
)

type keyMap struct {
	Edit          key.Binding
	Logout        key.Binding
	DeleteAccount key.Binding
	Up            key.Binding
	Down          key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit profile"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "log out"),
		),
		DeleteAccount: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "delete account"),
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

type formKind int

const (
	formNone formKind = iota
	formEdit
	formDelete
)

// Model represents the profile tab state.
type Model struct {
	state    *app.State
	keys     keyMap
	viewport viewport.Model
	width    int
	height   int

	form      *huh.Form
	kind      formKind
	profile   *forms.Profile
	confirmed bool
}

// New creates the profile tab.
func New(state *app.State) *Model {
	return &Model{
		state:    state,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the profile tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the profile tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	if sc, ok := msg.(app.SessionChangedMsg); ok && sc.Session == nil && m.form != nil {
		m.closeForm()
		return m, formActive(false)
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !m.state.LoggedIn() {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Edit):
		m.profile = forms.NewProfile(m.state.User())
		return m, m.openForm(formEdit, forms.EditProfile(m.profile))
	case key.Matches(keyMsg, m.keys.Logout):
		return m, func() tea.Msg { return app.LogoutMsg{} }
	case key.Matches(keyMsg, m.keys.DeleteAccount):
		m.confirmed = false
		return m, m.openForm(formDelete,
			forms.Confirm("Delete your account and every record? This cannot be undone.", &m.confirmed))
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(keyMsg)
	return m, cmd
}

func (m *Model) openForm(kind formKind, form *huh.Form) tea.Cmd {
	m.kind = kind
	m.form = form
	return tea.Batch(m.form.Init(), formActive(true))
}

func (m *Model) closeForm() {
	m.form = nil
	m.kind = formNone
	m.profile = nil
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
		kind, profile := m.kind, m.profile
		m.closeForm()
		switch kind {
		case formEdit:
			return m, tea.Batch(formActive(false), m.submitProfile(profile))
		case formDelete:
			if m.confirmed {
				return m, tea.Batch(formActive(false), func() tea.Msg { return app.DeleteAccountMsg{} })
			}
		}
		return m, formActive(false)
	case huh.StateAborted:
		m.closeForm()
		return m, formActive(false)
	}
	return m, cmd
}

func (m *Model) submitProfile(p *forms.Profile) tea.Cmd {
	upd := p.Update(m.state.User())
	if upd == (backend.ProfileUpdate{}) {
		return func() tea.Msg {
			return app.AddNotificationMsg{
				Type:     app.NotificationInfo,
				Message:  "Nothing to change",
				Duration: app.QuickNotificationDuration,
			}
		}
	}
	return func() tea.Msg { return app.UpdateProfileMsg{Update: upd} }
}

func formActive(active bool) tea.Cmd {
	return func() tea.Msg { return app.FormActiveMsg{Active: active} }
}

// SetSize sets the available size for the profile tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-6, 0)
	m.viewport.Height = max(height-2, 0)
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Edit, m.keys.Logout, m.keys.DeleteAccount}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Edit, m.keys.Logout, m.keys.DeleteAccount},
		{m.keys.Up, m.keys.Down},
	}
}
