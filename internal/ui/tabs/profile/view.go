package profile

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/ui/styles"
)

// View renders the profile tab.
func (m *Model) View() string {
	var content string
	switch {
	case m.form != nil:
		content = m.renderForm()
	case !m.state.LoggedIn():
		content = styles.HelpStyle.Render("Not logged in.")
	default:
		content = lipgloss.JoinVertical(lipgloss.Left,
			styles.TitleStyle.Render("Profile"),
			m.renderUser(),
			m.renderSession(),
			styles.HelpStyle.Render("e edit · L log out · X delete account"),
		)
	}

	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) cardWidth() int {
	return min(max(m.viewport.Width-2, 38), 80)
}

func (m *Model) renderForm() string {
	title := "Edit profile"
	if m.kind == formDelete {
		title = "Delete account"
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.CardTitleStyle.Render(title),
		"",
		m.form.View(),
		"",
		styles.HelpStyle.Render("enter next · esc cancel"),
	))
}

func (m *Model) renderUser() string {
	user := m.state.User()
	currency := user.Currency
	if currency == "" {
		currency = models.DefaultCurrency.Label()
	}

	rows := []string{
		styles.CardTitleStyle.Render("Account"),
		"",
		row("Name", user.Name),
		row("Email", user.Email),
		row("Hourly rate", models.FormatMoney(user.Rate(), currency)+"/h"),
		row("Currency", currency),
	}
	if user.Photo != "" {
		rows = append(rows, row("Photo", user.Photo))
	}
	rows = append(rows, row("User ID", user.ID))
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderSession() string {
	sess, _ := m.state.Session()
	loc := m.state.Location()

	expires := "never"
	if !sess.ExpiresAt.IsZero() {
		expires = sess.ExpiresAt.In(loc).Format("Mon 2 Jan 2006 15:04")
		if left := time.Until(sess.ExpiresAt); left > 0 {
			expires += fmt.Sprintf(" (in %s)", left.Round(time.Minute))
		} else {
			expires = styles.ErrorTextStyle.Render(expires + " (expired)")
		}
	}

	saved := "-"
	if !sess.SavedAt.IsZero() {
		saved = sess.SavedAt.In(loc).Format("Mon 2 Jan 2006 15:04")
	}

	rows := []string{
		styles.CardTitleStyle.Render("Session"),
		"",
		row("Token expires", expires),
		row("Saved", saved),
		row("Timezone", loc.String()),
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func row(label, value string) string {
	labelStyle := lipgloss.NewStyle().Width(16).Foreground(styles.TextMuted)
	valueStyle := lipgloss.NewStyle().Foreground(styles.TextPrimary)
	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}
