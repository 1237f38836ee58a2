package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/fichaje-tui/internal/ui/components"
	"github.com/j-veylop/fichaje-tui/internal/ui/forms"
	"github.com/j-veylop/fichaje-tui/internal/ui/styles"
)

type authMode int

const (
	authLogin authMode = iota
	authRegister
)

var switchModeKey = key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "login / sign up"))

// authView is shown instead of the tabs while nobody is logged in.
type authView struct {
	form       *huh.Form
	creds      *forms.Credentials
	reg        *forms.Registration
	spinner    components.LoadingSpinner
	err        string
	mode       authMode
	submitting bool
}

func newAuthView(mode authMode) *authView {
	a := &authView{
		mode:    mode,
		creds:   &forms.Credentials{},
		reg:     &forms.Registration{},
		spinner: components.NewSpinner("Signing in..."),
	}
	a.buildForm()
	return a
}

func (a *authView) buildForm() {
	switch a.mode {
	case authRegister:
		a.form = forms.Register(a.reg)
	default:
		a.form = forms.Login(a.creds)
	}
}

// Init starts the form and spinner.
func (a *authView) Init() tea.Cmd {
	return tea.Batch(a.form.Init(), a.spinner.Tick())
}

// Update drives the form. A completed form becomes a login or register
// request for the app model.
func (a *authView) Update(msg tea.Msg) tea.Cmd {
	if a.submitting {
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return cmd
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, switchModeKey):
			a.toggleMode()
			return a.form.Init()
		case keyMsg.Type == tea.KeyEsc:
			a.err = ""
			a.buildForm()
			return a.form.Init()
		}
	}

	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	if a.form.State == huh.StateCompleted {
		return tea.Batch(cmd, a.submit())
	}
	return cmd
}

func (a *authView) toggleMode() {
	if a.mode == authLogin {
		a.mode = authRegister
		a.reg.Email = a.creds.Email
	} else {
		a.mode = authLogin
		a.creds.Email = a.reg.Email
	}
	a.err = ""
	a.buildForm()
}

func (a *authView) submit() tea.Cmd {
	a.submitting = true
	a.err = ""

	if a.mode == authRegister {
		a.spinner.SetLabel("Creating account...")
		req := a.reg.Request()
		return tea.Batch(a.spinner.Tick(), func() tea.Msg {
			return RegisterRequestMsg{Request: req}
		})
	}

	a.spinner.SetLabel("Signing in...")
	email, password := strings.TrimSpace(a.creds.Email), a.creds.Password
	return tea.Batch(a.spinner.Tick(), func() tea.Msg {
		return LoginRequestMsg{Email: email, Password: password}
	})
}

// fail shows err and reopens the form, keeping everything but passwords.
func (a *authView) fail(message string) tea.Cmd {
	a.submitting = false
	a.err = message
	a.creds.Password = ""
	a.reg.Password = ""
	a.buildForm()
	return a.form.Init()
}

// View renders the form centered in the window.
func (a *authView) View(width, height int) string {
	title := "Log in"
	hint := "No account yet? ctrl+n to sign up"
	if a.mode == authRegister {
		title = "Create account"
		hint = "Already registered? ctrl+n to log in"
	}

	var rows []string
	rows = append(rows, styles.TitleStyle.Render("fichaje · "+title))

	if a.submitting {
		rows = append(rows, a.spinner.ViewWithLabel())
	} else {
		rows = append(rows, a.form.View())
	}

	if a.err != "" {
		rows = append(rows, "", styles.ErrorTextStyle.Render(a.err))
	}
	rows = append(rows, "", styles.HelpStyle.Render(hint+" · enter submit · esc clear · ctrl+c quit"))

	card := styles.CardStyle.Width(min(max(width-10, 40), 70)).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
	if width <= 0 || height <= 0 {
		return card
	}
	return styles.CenterBoth(card, width, height)
}
