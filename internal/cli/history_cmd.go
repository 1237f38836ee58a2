package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/tracking"
	"github.com/j-veylop/fichaje-tui/internal/ui/components"
)

// sparkDays is how far back the summary sparkline reaches.
const sparkDays = 14

// periodValue is a pflag.Value for day|week|month.
type periodValue tracking.Period

var _ pflag.Value = (*periodValue)(nil)

func (p *periodValue) String() string { return tracking.Period(*p).String() }

func (p *periodValue) Set(s string) error {
	period, ok := tracking.ParsePeriod(strings.ToLower(strings.TrimSpace(s)))
	if !ok {
		return fmt.Errorf("invalid period %q, want day, week or month", s)
	}
	*p = periodValue(period)
	return nil
}

func (p *periodValue) Type() string { return "period" }

func newHistoryCmd(app *App) *cobra.Command {
	period := periodValue(tracking.PeriodDay)
	var offline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List records by day, or totals by week or month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, warning, err := app.snapshot(cmd.Context(), offline)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			warn(out, warning)

			sess, _ := app.Manager.Session()
			agg := app.Manager.Aggregator(sess.User)
			records := models.Records(snap.Records)
			currency := sess.User.Currency

			if len(records) == 0 {
				fmt.Fprintln(out, "No records yet.")
				return nil
			}

			if tracking.Period(period) == tracking.PeriodDay {
				fmt.Fprintln(out, dayTable(agg, records, currency, limit))
				return nil
			}

			buckets := agg.Buckets(records, tracking.Period(period))
			if limit > 0 && len(buckets) > limit {
				buckets = buckets[:limit]
			}
			rows := make([][]string, 0, len(buckets))
			for _, b := range buckets {
				rows = append(rows, []string{
					b.Key,
					hours(b.Totals.Hours),
					hours(b.Totals.OvertimeHours),
					models.FormatMoney(b.Totals.Amount, currency),
					fmt.Sprint(b.Totals.Records),
				})
			}
			fmt.Fprintln(out, renderTable([]string{strings.ToUpper(period.String()), "HOURS", "OVERTIME", "EARNED", "RECORDS"}, rows))
			return nil
		},
	}

	cmd.Flags().Var(&period, "period", "Group by day, week or month")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the local cache, do not contact the backend")
	cmd.Flags().IntVar(&limit, "limit", 14, "Number of days, weeks or months to show (0 for all)")

	return cmd
}

func dayTable(agg *tracking.Aggregator, records []tracking.Record, currency string, limit int) string {
	loc := agg.Location()
	groups := agg.GroupByDay(records)
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	var rows [][]string
	for _, g := range groups {
		for _, r := range g.Records {
			end, worked, earned := "running", "", ""
			if !r.Open() {
				end = r.End.In(loc).Format("15:04")
				h, amount, _ := agg.Contribution(r)
				worked = hours(h)
				earned = models.FormatMoney(amount, currency)
			}
			flag := ""
			if r.Overtime {
				flag = "OT"
			}
			rows = append(rows, []string{
				g.Day.Format("Mon 02 Jan"),
				r.Start.In(loc).Format("15:04"),
				end,
				worked,
				earned,
				flag,
				r.ID,
			})
		}
	}
	return renderTable([]string{"DAY", "IN", "OUT", "HOURS", "EARNED", "", "ID"}, rows)
}

func newSummaryCmd(app *App) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show today, this week and this month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, warning, err := app.snapshot(cmd.Context(), offline)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			warn(out, warning)

			sess, _ := app.Manager.Session()
			fmt.Fprintln(out, summaryTable(snap.Summary, sess.User.Currency))

			if snap.Summary.Skipped > 0 {
				warn(out, fmt.Sprintf("%d record(s) without a start time were skipped", snap.Summary.Skipped))
			}
			agg := app.Manager.Aggregator(sess.User)
			records := models.Records(snap.Records)
			daily := agg.DailyHours(records, app.now(), sparkDays)
			fmt.Fprintf(out, "Last %d days    %s\n", sparkDays, components.RenderSparkline(daily, sparkDays))

			proj := agg.ProjectMonth(records, app.now())
			fmt.Fprintf(out, "Month projection: %s, %s h (%s confidence, %s)\n",
				models.FormatMoney(proj.ProjectedAmount, sess.User.Currency),
				proj.ProjectedHours.StringFixed(2), proj.Confidence, proj.VsLastMonth())

			if !snap.Totals.Week.IsZero() || !snap.Totals.Month.IsZero() {
				fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("Backend totals: week %s, month %s",
					hours(snap.Totals.Week), hours(snap.Totals.Month))))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use the local cache, do not contact the backend")

	return cmd
}

func newEarningsCmd(app *App) *cobra.Command {
	var year int
	var offline bool

	cmd := &cobra.Command{
		Use:   "earnings",
		Short: "Show the amount earned each month of a year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, warning, err := app.snapshot(cmd.Context(), offline)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			warn(out, warning)

			if year == 0 {
				year = app.now().In(app.location()).Year()
			}
			sess, _ := app.Manager.Session()
			currency := sess.User.Currency
			earnings := app.Manager.Aggregator(sess.User).MonthlyEarnings(models.Records(snap.Records), year)

			rows := make([][]string, 0, 13)
			for i, amount := range earnings.Months {
				rows = append(rows, []string{time.Month(i + 1).String(), models.FormatMoney(amount, currency)})
			}
			rows = append(rows, []string{"Total", models.FormatMoney(earnings.Total, currency)})

			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Earnings %d", year)))
			fmt.Fprintln(out, renderTable([]string{"MONTH", "EARNED"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Calendar year (default: this year)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the local cache, do not contact the backend")

	return cmd
}
