package earnings

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/ui/components"
	"github.com/j-veylop/fichaje-tui/internal/ui/styles"
)

// View renders the earnings tab.
func (m *Model) View() string {
	currency := m.state.User().Currency

	title := styles.TitleStyle.Render(fmt.Sprintf("Earnings %d", m.year))
	yearHint := styles.HelpStyle.Render("[ previous · ] next · y this year")

	sections := []string{
		lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", yearHint),
		m.renderChart(currency),
		m.renderTotals(currency),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderChart(currency string) string {
	cardWidth := max(m.viewport.Width-2, 38)

	values := make([]float64, len(m.earnings.Months))
	labels := make([]string, len(m.earnings.Months))
	for i, v := range m.earnings.Months {
		values[i] = v.InexactFloat64()
		labels[i] = time.Month(i + 1).String()[:3]
	}

	format := func(v float64) string {
		return models.FormatMoney(decimal.NewFromFloat(v), currency)
	}

	rows := []string{styles.CardTitleStyle.Render("Per month"), ""}
	if m.earnings.Total.IsZero() {
		rows = append(rows, styles.HelpStyle.Render(fmt.Sprintf("No closed records in %d.", m.year)))
	} else {
		chart := components.RenderBarChart(values, labels, max(cardWidth-20, 30), format)
		for line := range strings.SplitSeq(chart, "\n") {
			rows = append(rows, "  "+line)
		}

		cumulative := make([]float64, len(values))
		var running float64
		for i, v := range values {
			running += v
			cumulative[i] = running
		}
		rows = append(rows, "", styles.CardTitleStyle.Render("Running total"), "",
			components.RenderLineChart(cumulative, max(cardWidth-16, 24), 6, "Jan to Dec"))
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderTotals(currency string) string {
	var worked int
	best := -1
	for i, v := range m.earnings.Months {
		if v.IsPositive() {
			worked++
			if best < 0 || v.GreaterThan(m.earnings.Months[best]) {
				best = i
			}
		}
	}

	rows := []string{
		styles.CardTitleStyle.Render("Year"),
		"",
		fmt.Sprintf("Total    %s", styles.SuccessTextStyle.Render(models.FormatMoney(m.earnings.Total, currency))),
	}
	if worked > 0 {
		avg := m.earnings.Total.Div(decimal.NewFromInt(int64(worked)))
		rows = append(rows,
			fmt.Sprintf("Average  %s per month worked", models.FormatMoney(avg, currency)),
			fmt.Sprintf("Best     %s (%s)", time.Month(best+1), models.FormatMoney(m.earnings.Months[best], currency)),
		)
	}
	if m.year == m.thisYear() {
		p := m.projection
		rows = append(rows,
			"",
			fmt.Sprintf("Projected %s  %s (%s h at the current pace)",
				m.now().In(m.state.Location()).Month(),
				styles.InfoTextStyle.Render(models.FormatMoney(p.ProjectedAmount, currency)),
				p.ProjectedHours.StringFixed(2)),
			styles.HelpStyle.Render(fmt.Sprintf("%s confidence, %d of %d days worked · %s",
				p.Confidence, p.DaysWorked, p.DaysElapsed, p.VsLastMonth())),
		)
	}
	user := m.state.User()
	rows = append(rows, styles.HelpStyle.Render(fmt.Sprintf("Rate %s/h", models.FormatMoney(user.Rate(), currency))))

	return styles.CardStyle.Width(max(m.viewport.Width-2, 38)).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
