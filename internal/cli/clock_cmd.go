package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j-veylop/fichaje-tui/internal/services"
	"github.com/j-veylop/fichaje-tui/internal/tracking"
	"github.com/j-veylop/fichaje-tui/internal/ui/forms"
)

func newInCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "in",
		Aliases: []string{"start"},
		Short:   "Clock in",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireSession(); err != nil {
				return err
			}
			rec, err := app.Manager.ClockIn(cmd.Context())
			if errors.Is(err, services.ErrAlreadyClockedIn) {
				return fmt.Errorf("already clocked in since %s (%s)",
					rec.Start.In(app.location()).Format("15:04"),
					tracking.FormatHHMMSS(rec.Elapsed(app.now())))
			}
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Clocked in at %s\n", rec.Start.In(app.location()).Format("15:04"))
			return nil
		},
	}
}

func newOutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "out",
		Aliases: []string{"stop"},
		Short:   "Clock out",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireSession(); err != nil {
				return err
			}
			rec, err := app.Manager.ClockOut(cmd.Context())
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			if rec.End == nil {
				fmt.Fprintln(out, "Clocked out")
				return nil
			}
			fmt.Fprintf(out, "Clocked out at %s after %s\n",
				rec.End.In(app.location()).Format("15:04"),
				tracking.FormatHHMMSS(tracking.ElapsedSeconds(rec.Start.Time, rec.End.Time)))
			return nil
		},
	}
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the running record and today's totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, app)
		},
	}
}

func runStatus(cmd *cobra.Command, app *App) error {
	out := cmd.OutOrStdout()
	sess, ok := app.Manager.Session()
	if !ok {
		fmt.Fprintln(out, "Not logged in. Run `fichaje login` to start.")
		return nil
	}

	snap, warning, err := app.snapshot(cmd.Context(), false)
	if err != nil {
		return err
	}
	warn(out, warning)

	fmt.Fprintf(out, "%s <%s>\n", sess.User.Name, sess.User.Email)
	if cur := snap.Current; cur != nil {
		line := fmt.Sprintf("Clocked in since %s  %s",
			cur.Start.In(app.location()).Format("Mon 15:04"),
			okStyle.Render(tracking.FormatHHMMSS(cur.Elapsed(app.now()))))
		if cur.Overtime {
			line += "  " + warnStyle.Render("overtime")
		}
		fmt.Fprintln(out, line)
	} else {
		fmt.Fprintln(out, dimStyle.Render("Not clocked in"))
	}

	fmt.Fprintln(out, summaryTable(snap.Summary, sess.User.Currency))
	return nil
}

func newOvertimeCmd(app *App) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "overtime ID",
		Short: "Mark a record as overtime, or back to regular time with --off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireSession(); err != nil {
				return err
			}
			rec, err := app.Manager.SetOvertime(cmd.Context(), args[0], !off)
			if err != nil {
				return explain(err)
			}
			kind := "overtime"
			if !rec.Overtime {
				kind = "regular time"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Record %s marked as %s\n", rec.ID, kind)
			return nil
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Mark as regular time")

	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	var all, yes bool

	cmd := &cobra.Command{
		Use:   "delete [ID...]",
		Short: "Delete records, or the whole history with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("pass record IDs or --all, not both")
			}
			if !all && len(args) == 0 {
				return errors.New("pass at least one record ID, or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireSession(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !all {
				if err := app.Manager.DeleteRecords(cmd.Context(), args); err != nil {
					return explain(err)
				}
				fmt.Fprintf(out, "Deleted %d record(s)\n", len(args))
				return nil
			}

			if !yes {
				if !app.interactive() {
					return fmt.Errorf("--yes is required to delete the whole history: %w", errNeedsTerminal)
				}
				if err := forms.Confirm("Delete your whole history? This cannot be undone.", &yes).Run(); err != nil {
					return err
				}
				if !yes {
					fmt.Fprintln(out, "Cancelled")
					return nil
				}
			}
			if err := app.Manager.DeleteHistory(cmd.Context()); err != nil {
				return explain(err)
			}
			fmt.Fprintln(out, "History deleted")
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every record")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}
