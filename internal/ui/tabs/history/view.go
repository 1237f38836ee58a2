package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/tracking"
	"github.com/j-veylop/fichaje-tui/internal/ui/components"
	"github.com/j-veylop/fichaje-tui/internal/ui/styles"
)

const chartHeight = 8

// View renders the history tab.
func (m *Model) View() string {
	if m.state.IsInitialLoading() && m.state.Snapshot().FetchedAt.IsZero() {
		return m.renderLoading()
	}
	if len(m.groups) == 0 {
		return m.renderEmpty()
	}

	sections := []string{m.renderHeader()}
	if m.form != nil {
		sections = append(sections, styles.CardStyle.Width(m.cardWidth()).Render(m.form.View()))
	}
	sections = append(sections, m.renderChart())
	if m.period == tracking.PeriodDay {
		sections = append(sections, m.renderDays())
	} else {
		sections = append(sections, m.renderBuckets())
	}

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderLoading() string {
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(styles.HelpStyle.Render("Loading history..."))
}

func (m *Model) renderEmpty() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("History"),
		"",
		styles.HelpStyle.Render("No records yet."),
		styles.HelpStyle.Render("Clock in from the Clock tab to start one."),
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) cardWidth() int {
	return max(m.width-8, 40)
}

func (m *Model) renderHeader() string {
	title := styles.TitleStyle.Render("History")

	indicator := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		title, "  ",
		indicator.Render("[t] "+m.timeRange.String()),
		" ",
		indicator.Render("[p] by "+m.period.String()),
	)

	var info []string
	if n := len(m.selected); n > 0 {
		info = append(info, styles.InfoTextStyle.Render(fmt.Sprintf("%d selected", n)))
	}
	if m.state.Snapshot().Offline {
		info = append(info, styles.WarningTextStyle.Render("offline copy"))
	}
	if skipped := m.state.Snapshot().Summary.Skipped; skipped > 0 {
		info = append(info, styles.WarningTextStyle.Render(fmt.Sprintf("%d record(s) without start skipped", skipped)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, strings.Join(info, "  "))
}

func (m *Model) renderChart() string {
	cardWidth := m.cardWidth()
	agg := m.state.Aggregator()
	days := m.timeRange.Days()

	var regular, overtime []tracking.Record
	for _, r := range m.state.Records() {
		if r.Overtime {
			overtime = append(overtime, r)
		} else {
			regular = append(regular, r)
		}
	}
	ref := m.now()

	chart := components.RenderHoursChart(
		agg.DailyHours(regular, ref, days),
		agg.DailyHours(overtime, ref, days),
		max(cardWidth-14, 30), chartHeight,
		fmt.Sprintf("Hours per day, last %d days", days),
	)

	rows := []string{styles.CardTitleStyle.Render("Daily hours"), ""}
	for line := range strings.SplitSeq(chart, "\n") {
		rows = append(rows, "  "+line)
	}
	rows = append(rows, "", "  "+components.RenderLegend([]components.LegendItem{
		{Label: "Regular", Color: components.ChartRegularColor},
		{Label: "Overtime", Color: components.ChartOvertimeColor},
	}))

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// listHeight is how many list lines fit under the chart.
func (m *Model) listHeight() int {
	used := chartHeight + 12
	if m.form != nil {
		used += 6
	}
	return max(m.height-used, 5)
}

func (m *Model) renderDays() string {
	agg := m.state.Aggregator()
	currency := m.state.User().Currency
	loc := m.state.Location()

	height := m.listHeight()
	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := min(start+height, len(m.rows))

	var lines []string
	for i := start; i < end; i++ {
		r := m.rows[i]
		g := m.groups[r.group]

		if r.record == nil {
			label := fmt.Sprintf("%s  %s h  %s",
				g.Day.Format("Mon 02 Jan 2006"),
				g.Totals.Hours.StringFixed(2),
				models.FormatMoney(g.Totals.Amount, currency))
			lines = append(lines, styles.SubTitleStyle.UnsetMarginBottom().Render(label))
			continue
		}

		rec := r.record
		mark := "[ ]"
		if m.selected[rec.ID] {
			mark = "[x]"
		}

		span := rec.Start.In(loc).Format("15:04") + " → "
		var amount string
		if rec.Open() {
			span += styles.RunningBadgeStyle.Render("running")
		} else {
			span += rec.End.In(loc).Format("15:04")
			hours, money, _ := agg.Contribution(*rec)
			amount = fmt.Sprintf("%7s h  %s", hours.StringFixed(2), models.FormatMoney(money, currency))
		}

		line := fmt.Sprintf("%s %s  %s", mark, span, amount)
		if rec.Overtime {
			line += " " + styles.OvertimeBadgeStyle.Render("OT")
		}

		if i == m.cursor {
			lines = append(lines, styles.SelectedListItemStyle.Render(line))
		} else {
			lines = append(lines, styles.ListItemStyle.Render(line))
		}
	}

	if end < len(m.rows) {
		lines = append(lines, styles.HelpStyle.Render(fmt.Sprintf("  … %d more", len(m.rows)-end)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderBuckets() string {
	currency := m.state.User().Currency

	header := fmt.Sprintf("%-10s %10s %12s %12s %8s", m.period.String(), "hours", "amount", "overtime", "records")
	lines := []string{styles.TableHeaderStyle.Render(header)}

	height := m.listHeight()
	for i, b := range m.buckets {
		if i >= height {
			lines = append(lines, styles.HelpStyle.Render(fmt.Sprintf("  … %d more", len(m.buckets)-i)))
			break
		}
		lines = append(lines, styles.TableCellStyle.Render(fmt.Sprintf("%-10s %10s %12s %12s %8d",
			b.Key,
			b.Totals.Hours.StringFixed(2),
			models.FormatMoney(b.Totals.Amount, currency),
			b.Totals.OvertimeHours.StringFixed(2),
			b.Totals.Records,
		)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
