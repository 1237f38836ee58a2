package info

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/ui/styles"
	"github.com/j-veylop/fichaje-tui/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	var sections []string

	sections = append(sections, m.renderTitle())
	sections = append(sections, m.renderConfigCard())
	sections = append(sections, m.renderActivityCard())
	sections = append(sections, m.renderAboutCard())

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

// renderTitle renders the info tab title.
func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration and application information")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.viewport.Width-2, 50), 80)
}

// renderConfigCard renders the configuration card.
func (m *Model) renderConfigCard() string {
	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("Configuration"))
	rows = append(rows, "")

	if m.config != nil {
		tz := m.config.Timezone
		if m.config.Location != nil {
			tz = m.config.Location.String()
		}
		configFile := m.config.ConfigFile
		if configFile == "" {
			configFile = "(none)"
		}
		rows = append(rows,
			m.renderConfigRow("Backend", m.config.APIURL),
			m.renderConfigRow("Database", m.config.DatabasePath),
			m.renderConfigRow("Session File", m.config.SessionPath),
			m.renderConfigRow("Log File", m.config.LogPath),
			m.renderConfigRow("Config File", configFile),
			m.renderConfigRow("Timezone", tz),
			m.renderConfigRow("Refresh", m.config.RefreshInterval.String()),
			m.renderConfigRow("Shift Reminder", m.config.ShiftReminder.String()),
		)
	} else {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

// renderConfigRow renders a configuration key-value row.
func (m *Model) renderConfigRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(18).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func (m *Model) renderActivityCard() string {
	rows := []string{styles.CardTitleStyle.Render("Recent activity"), ""}

	switch {
	case !m.state.LoggedIn():
		rows = append(rows, styles.HelpStyle.Render("Log in to see your activity."))
	case m.activityErr != nil:
		rows = append(rows, styles.ErrorTextStyle.Render(m.activityErr.Error()))
	case len(m.activity) == 0:
		rows = append(rows, styles.HelpStyle.Render("Nothing clocked from this machine yet."))
	default:
		loc := m.state.Location()
		for _, ev := range m.activity {
			rows = append(rows, fmt.Sprintf("%s  %s  %s",
				styles.HelpStyle.Render(ev.At.In(loc).Format("02 Jan 15:04:05")),
				actionStyle(ev.Action).Render(fmt.Sprintf("%-12s", ev.Action)),
				styles.HelpStyle.Render(ev.RecordID),
			))
		}
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func actionStyle(a models.ClockAction) lipgloss.Style {
	switch a {
	case models.ActionClockIn:
		return styles.SuccessTextStyle
	case models.ActionClockOut:
		return styles.InfoTextStyle
	case models.ActionDelete, models.ActionDeleteAll:
		return styles.ErrorTextStyle
	default:
		return styles.WarningTextStyle
	}
}

// renderAboutCard renders the version information card.
func (m *Model) renderAboutCard() string {
	var rows []string
	rows = append(rows, styles.CardTitleStyle.Render("About fichaje"))
	rows = append(rows, "")

	rows = append(rows, m.renderConfigRow("Version", version.GetVersion()))
	rows = append(rows, m.renderConfigRow("Build Date", version.GetDate()))
	rows = append(rows, m.renderConfigRow("Git Commit", version.GetCommit()))
	rows = append(rows, m.renderConfigRow("Go Version", runtime.Version()))
	rows = append(rows, m.renderConfigRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)))

	if user := m.state.User(); user.Email != "" {
		rows = append(rows, "")
		rows = append(rows, fmt.Sprintf("Logged in as %s", styles.InfoTextStyle.Render(user.Email)))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}
