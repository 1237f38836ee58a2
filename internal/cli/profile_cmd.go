package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/services/backend"
	"github.com/j-veylop/fichaje-tui/internal/ui/forms"
	"github.com/j-veylop/fichaje-tui/internal/version"
)

func newProfileCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the profile of the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.requireSession()
			if err != nil {
				return err
			}
			user, err := app.Manager.Profile(cmd.Context())
			if err != nil {
				return explain(err)
			}

			currency := user.Currency
			if currency == "" {
				currency = models.DefaultCurrency.Label()
			}
			photo := user.Photo
			if photo == "" {
				photo = "-"
			}
			expires := "never"
			if !sess.ExpiresAt.IsZero() {
				expires = sess.ExpiresAt.In(app.location()).Format("2006-01-02 15:04")
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"FIELD", "VALUE"}, [][]string{
				{"Name", user.Name},
				{"Email", user.Email},
				{"Hourly rate", models.FormatMoney(user.Rate(), currency) + "/h"},
				{"Currency", currency},
				{"Photo", photo},
				{"User ID", user.ID},
				{"Session expires", expires},
			}))
			return nil
		},
	}

	cmd.AddCommand(newProfileEditCmd(app), newProfileDeleteCmd(app))

	return cmd
}

// currencyLabel accepts a code ("eur") or a full label.
func currencyLabel(s string) (string, error) {
	code := models.CurrencyCode(s)
	for _, c := range models.Currencies {
		if c.Code == code {
			return c.Label(), nil
		}
	}
	codes := make([]string, len(models.Currencies))
	for i, c := range models.Currencies {
		codes[i] = c.Code
	}
	return "", fmt.Errorf("unknown currency %q, want one of %s", s, strings.Join(codes, ", "))
}

func newProfileEditCmd(app *App) *cobra.Command {
	var name, email, rate, currency, photo, password string

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Change name, email, hourly rate, currency, photo or password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.requireSession()
			if err != nil {
				return err
			}
			user := sess.User

			p := forms.NewProfile(user)
			if cmd.Flags().NFlag() == 0 {
				if !app.interactive() {
					return fmt.Errorf("pass at least one of --name, --email, --rate, --currency, --photo, --password: %w", errNeedsTerminal)
				}
				if err := forms.EditProfile(p).Run(); err != nil {
					return err
				}
			} else {
				if name != "" {
					p.Name = name
				}
				if email != "" {
					if err := forms.ValidateEmail(email); err != nil {
						return err
					}
					p.Email = email
				}
				if rate != "" {
					if err := forms.ValidateRate(rate); err != nil {
						return err
					}
					p.Rate = rate
				}
				if currency != "" {
					if p.Currency, err = currencyLabel(currency); err != nil {
						return err
					}
				}
				if photo != "" {
					if err := forms.ValidatePhotoURL(photo); err != nil {
						return err
					}
					p.Photo = photo
				}
				if password != "" {
					if err := forms.ValidatePassword(password); err != nil {
						return err
					}
					p.Password = password
				}
			}

			update := p.Update(user)
			out := cmd.OutOrStdout()
			if update == (backend.ProfileUpdate{}) {
				fmt.Fprintln(out, "Nothing to change")
				return nil
			}

			result, err := app.Manager.UpdateProfile(cmd.Context(), update)
			if err != nil {
				return explain(err)
			}
			if result.PasswordChanged {
				fmt.Fprintln(out, "Password changed, run `fichaje login` again")
				return nil
			}
			fmt.Fprintln(out, "Profile updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&email, "email", "", "New email")
	cmd.Flags().StringVar(&rate, "rate", "", "New hourly rate")
	cmd.Flags().StringVar(&currency, "currency", "", "Currency code: USD, EUR, ARS or GBP")
	cmd.Flags().StringVar(&photo, "photo", "", "New photo URL")
	cmd.Flags().StringVar(&password, "password", "", "New password (logs you out)")

	return cmd
}

func newProfileDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the account and every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.requireSession(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !yes {
				if !app.interactive() {
					return fmt.Errorf("--yes is required to delete the account: %w", errNeedsTerminal)
				}
				if err := forms.Confirm("Delete your account and every record? This cannot be undone.", &yes).Run(); err != nil {
					return err
				}
				if !yes {
					fmt.Fprintln(out, "Cancelled")
					return nil
				}
			}
			if err := app.Manager.DeleteAccount(cmd.Context()); err != nil {
				return explain(err)
			}
			fmt.Fprintln(out, "Account deleted")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}
