package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/tracking"
	"github.com/j-veylop/fichaje-tui/internal/ui/styles"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Primary)
	dimStyle    = lipgloss.NewStyle().Foreground(styles.TextMuted)
	warnStyle   = lipgloss.NewStyle().Foreground(styles.Warning)
	okStyle     = lipgloss.NewStyle().Foreground(styles.Success)
)

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

func hours(d decimal.Decimal) string {
	return d.StringFixed(2) + " h"
}

func warn(w io.Writer, msg string) {
	if msg != "" {
		fmt.Fprintln(w, warnStyle.Render("! "+msg))
	}
}

// totalsRow is one line of the today/week/month summary.
func totalsRow(label string, t tracking.Totals, currency string) []string {
	overtime := ""
	if t.OvertimeHours.IsPositive() {
		overtime = hours(t.OvertimeHours)
	}
	return []string{label, hours(t.Hours), models.FormatMoney(t.Amount, currency), overtime, fmt.Sprint(t.Records)}
}

func summaryTable(s tracking.Summary, currency string) string {
	return renderTable(
		[]string{"PERIOD", "HOURS", "EARNED", "OVERTIME", "RECORDS"},
		[][]string{
			totalsRow("Today", s.Today, currency),
			totalsRow("This week", s.Week, currency),
			totalsRow("This month", s.Month, currency),
		},
	)
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "  ")
}
