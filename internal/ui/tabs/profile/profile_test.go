package profile

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"

	"github.com/j-veylop/fichaje-tui/internal/app"
	"github.com/j-veylop/fichaje-tui/internal/models"
)

func loggedIn() *app.State {
	state := app.NewState()
	state.SetLocation(time.UTC)
	state.SetSession(&models.Session{
		Token: "tok",
		User: models.User{
			ID:         "u1",
			Name:       "Ana",
			Email:      "ana@example.com",
			HourlyRate: decimal.NewFromInt(12),
			Currency:   "EUR - Euro",
		},
	})
	return state
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// collect runs cmd and every command of a batch it returns.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// complete marks the open form as submitted and lets the model react.
func complete(t *testing.T, m *Model) []tea.Msg {
	t.Helper()
	if m.form == nil {
		t.Fatal("no form open")
	}
	m.form.State = huh.StateCompleted
	_, cmd := m.Update(key("x"))
	return collect(cmd)
}

func TestNew(t *testing.T) {
	m := New(app.NewState())
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() != nil {
		t.Error("Init should return nil")
	}
}

func TestModel_ViewLoggedOut(t *testing.T) {
	m := New(app.NewState())
	m.SetSize(100, 30)
	if !strings.Contains(m.View(), "Not logged in") {
		t.Error("logged out hint missing")
	}
	if _, cmd := m.Update(key("e")); cmd != nil || m.form != nil {
		t.Error("edit should do nothing while logged out")
	}
}

func TestModel_View(t *testing.T) {
	m := New(loggedIn())
	m.SetSize(100, 40)

	view := m.View()
	for _, want := range []string{"Ana", "ana@example.com", "€12.00/h", "EUR - Euro", "never", "UTC"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestModel_Logout(t *testing.T) {
	m := New(loggedIn())
	_, cmd := m.Update(key("L"))
	msgs := collect(cmd)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if _, ok := msgs[0].(app.LogoutMsg); !ok {
		t.Errorf("got %T, want LogoutMsg", msgs[0])
	}
}

func TestModel_EditProfile(t *testing.T) {
	m := New(loggedIn())
	m.SetSize(100, 40)

	m.Update(key("e"))
	if m.form == nil || m.kind != formEdit {
		t.Fatal("e should open the edit form")
	}
	if m.profile.Name != "Ana" || m.profile.Rate != "12" {
		t.Errorf("form not filled from the user: %+v", m.profile)
	}
	if !strings.Contains(m.View(), "Edit profile") {
		t.Error("form card missing")
	}

	m.profile.Rate = "15.5"
	msgs := complete(t, m)
	if m.form != nil {
		t.Error("form should close after submit")
	}

	var upd *app.UpdateProfileMsg
	var released bool
	for _, msg := range msgs {
		switch msg := msg.(type) {
		case app.UpdateProfileMsg:
			upd = &msg
		case app.FormActiveMsg:
			released = !msg.Active
		}
	}
	if !released {
		t.Error("form should release the keyboard")
	}
	if upd == nil {
		t.Fatal("no UpdateProfileMsg")
	}
	if upd.Update.HourlyRate == nil || !upd.Update.HourlyRate.Equal(decimal.RequireFromString("15.5")) {
		t.Errorf("rate = %v, want 15.5", upd.Update.HourlyRate)
	}
	if upd.Update.Name != "" || upd.Update.Email != "" {
		t.Error("unchanged fields should not be sent")
	}
}

func TestModel_EditNothingChanged(t *testing.T) {
	m := New(loggedIn())
	m.Update(key("e"))

	for _, msg := range complete(t, m) {
		if _, ok := msg.(app.UpdateProfileMsg); ok {
			t.Error("an unchanged profile should not be sent")
		}
		if n, ok := msg.(app.AddNotificationMsg); ok && n.Message != "Nothing to change" {
			t.Errorf("notification = %q", n.Message)
		}
	}
}

func TestModel_EscCancels(t *testing.T) {
	m := New(loggedIn())
	m.Update(key("e"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.form != nil {
		t.Error("esc should close the form")
	}
	msgs := collect(cmd)
	if len(msgs) != 1 || msgs[0] != (app.FormActiveMsg{Active: false}) {
		t.Errorf("got %v, want FormActiveMsg{false}", msgs)
	}
}

func TestModel_DeleteAccount(t *testing.T) {
	m := New(loggedIn())

	m.Update(key("X"))
	if m.kind != formDelete {
		t.Fatal("X should open the confirmation")
	}
	for _, msg := range complete(t, m) {
		if _, ok := msg.(app.DeleteAccountMsg); ok {
			t.Error("declined confirmation should not delete")
		}
	}

	m.Update(key("X"))
	m.confirmed = true
	var deleted bool
	for _, msg := range complete(t, m) {
		if _, ok := msg.(app.DeleteAccountMsg); ok {
			deleted = true
		}
	}
	if !deleted {
		t.Error("confirmed deletion should send DeleteAccountMsg")
	}
}

func TestModel_LogoutClosesForm(t *testing.T) {
	m := New(loggedIn())
	m.Update(key("e"))

	_, cmd := m.Update(app.SessionChangedMsg{})
	if m.form != nil {
		t.Error("form should close on logout")
	}
	if cmd == nil {
		t.Error("should release the keyboard")
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState())
	if len(m.ShortHelp()) != 3 {
		t.Errorf("ShortHelp = %d bindings, want 3", len(m.ShortHelp()))
	}
	if len(m.FullHelp()) != 2 {
		t.Errorf("FullHelp = %d rows, want 2", len(m.FullHelp()))
	}
}
