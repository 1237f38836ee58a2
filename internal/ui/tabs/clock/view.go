package clock

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/tracking"
	"github.com/j-veylop/fichaje-tui/internal/ui/components"
	"github.com/j-veylop/fichaje-tui/internal/ui/styles"
)

var (
	hoursStyle  = lipgloss.NewStyle().Foreground(styles.TextPrimary).Bold(true)
	amountStyle = lipgloss.NewStyle().Foreground(styles.TextSecondary)
)

// View renders the clock tab.
func (m *Model) View() string {
	if m.state.IsInitialLoading() && m.state.Snapshot().FetchedAt.IsZero() {
		return styles.DocStyle.
			Width(m.width).
			Height(m.height).
			Render(styles.HelpStyle.Render("Loading records..."))
	}

	summary := m.state.Aggregator().Summarize(m.state.Records(), m.lastTick)

	sections := []string{
		m.renderStopwatch(),
		m.renderTotals(summary),
		m.renderWeek(),
	}
	if summary.Skipped > 0 {
		sections = append(sections, styles.WarningTextStyle.Render(
			fmt.Sprintf("%d record(s) without a start time were left out", summary.Skipped)))
	}
	sections = append(sections, m.help.View(m.keys))

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderStopwatch() string {
	cardWidth := m.cardWidth()
	cur := m.state.Current()
	elapsed := m.elapsed()

	var rows []string
	title := styles.CardTitleStyle.Render("Current session")
	if cur != nil {
		title = lipgloss.JoinHorizontal(lipgloss.Center, title, " ", styles.RunningBadgeStyle.Render("RUNNING"))
		if cur.Overtime {
			title = lipgloss.JoinHorizontal(lipgloss.Center, title, " ", styles.OvertimeBadgeStyle.Render("OVERTIME"))
		}
	}
	rows = append(rows, title, "")
	rows = append(rows, styles.StopwatchStyle.Render(tracking.FormatHHMMSS(elapsed)))

	if cur == nil {
		rows = append(rows, styles.HelpStyle.Render("Not clocked in. Press space to start."))
	} else {
		start := cur.Start.In(m.state.Location())
		rows = append(rows,
			styles.HelpStyle.Render("Since "+start.Format("Mon 2 Jan 15:04")),
			"",
			m.shiftBar.View(elapsed, m.shift, cardWidth),
		)
	}
	if m.pending {
		rows = append(rows, styles.InfoTextStyle.Render("Working..."))
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderTotals(summary tracking.Summary) string {
	currency := m.state.User().Currency
	cardWidth := max((m.viewport.Width-6)/3, 24)

	card := func(title string, t tracking.Totals) string {
		rows := []string{
			styles.CardTitleStyle.Render(title),
			"",
			hoursStyle.Render(t.Hours.StringFixed(2) + " h"),
			amountStyle.Render(models.FormatMoney(t.Amount, currency)),
		}
		if t.OvertimeHours.IsPositive() {
			rows = append(rows, styles.OvertimeBadgeStyle.Render(
				fmt.Sprintf("%s h overtime", t.OvertimeHours.StringFixed(2))))
		}
		rows = append(rows, styles.HelpStyle.Render(fmt.Sprintf("%d record(s)", t.Records)))
		return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Today", summary.Today),
		card("This week", summary.Week),
		card("This month", summary.Month),
	)
}

// renderWeek shows the hours of each day of the current week, Monday first.
func (m *Model) renderWeek() string {
	agg := m.state.Aggregator()
	sunday := agg.BucketStart(m.lastTick, tracking.PeriodWeek).AddDate(0, 0, 6)
	hours := agg.DailyHours(m.state.Records(), sunday, 7)

	rows := []string{
		styles.CardTitleStyle.Render("This week"),
		"",
		components.RenderWeeklyPattern(hours, nil),
		components.RenderColoredSparkline(hours, 7),
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// cardWidth fits one bordered card across the viewport.
func (m *Model) cardWidth() int {
	return max(m.viewport.Width-2, 38)
}
