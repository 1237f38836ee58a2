package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/j-veylop/fichaje-tui/internal/ui/forms"
)

var errNeedsTerminal = errors.New("missing flags, and no terminal to ask for them")

func newLoginCmd(app *App) *cobra.Command {
	var creds forms.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.Email == "" || creds.Password == "" {
				if !app.interactive() {
					return fmt.Errorf("--email and --password are required: %w", errNeedsTerminal)
				}
				if err := forms.Login(&creds).Run(); err != nil {
					return err
				}
			}
			if err := forms.ValidateEmail(creds.Email); err != nil {
				return err
			}

			sess, err := app.Manager.Login(cmd.Context(), strings.TrimSpace(creds.Email), creds.Password)
			if err != nil {
				return fmt.Errorf("failed to log in: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>\n", sess.User.Name, sess.User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Account password")

	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var reg forms.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reg.Name == "" || reg.Email == "" || reg.Password == "" || reg.Rate == "" {
				if !app.interactive() {
					return fmt.Errorf("--name, --email, --password and --rate are required: %w", errNeedsTerminal)
				}
				if err := forms.Register(&reg).Run(); err != nil {
					return err
				}
			}
			for _, check := range []error{
				forms.ValidateRequired("name")(reg.Name),
				forms.ValidateEmail(reg.Email),
				forms.ValidatePassword(reg.Password),
				forms.ValidateRate(reg.Rate),
			} {
				if check != nil {
					return check
				}
			}

			sess, err := app.Manager.Register(cmd.Context(), reg.Request())
			if err != nil {
				return fmt.Errorf("failed to register: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created, logged in as %s\n", sess.User.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "Account password")
	cmd.Flags().StringVar(&reg.Rate, "rate", "", "Hourly rate, e.g. 12.50")

	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session and cached records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := app.Manager.Session(); !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			if err := app.Manager.Logout(); err != nil {
				return fmt.Errorf("failed to log out: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newRecoverCmd(app *App) *cobra.Command {
	var rec forms.Recovery

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Reset a forgotten password with a code sent by email",
		Long: `Reset a forgotten password in two steps.

Ask for a code with --email and --send-to, then redeem it with --email,
--code and --password. Without flags both steps run as forms.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()

			if rec.Code == "" {
				if rec.Email == "" || rec.SendTo == "" {
					if !app.interactive() {
						return fmt.Errorf("--email and --send-to, or --email, --code and --password, are required: %w", errNeedsTerminal)
					}
					if err := forms.RequestRecovery(&rec).Run(); err != nil {
						return err
					}
				}
				if err := forms.ValidateEmail(rec.Email); err != nil {
					return err
				}
				if err := forms.ValidateEmail(rec.SendTo); err != nil {
					return fmt.Errorf("destination: %w", err)
				}
				if err := app.Manager.RequestPasswordRecovery(ctx, rec.Request()); err != nil {
					return err
				}
				fmt.Fprintf(out, "Code sent to %s, it expires in 5 minutes\n", strings.TrimSpace(rec.SendTo))

				if !app.interactive() {
					fmt.Fprintf(out, "Finish with `fichaje recover --email %s --code <code> --password <new>`\n", strings.TrimSpace(rec.Email))
					return nil
				}
				if err := forms.ResetPassword(&rec).Run(); err != nil {
					return err
				}
			} else if rec.Email == "" || rec.Password == "" {
				if !app.interactive() {
					return fmt.Errorf("--email and --password are required with --code: %w", errNeedsTerminal)
				}
				if err := forms.ResetPassword(&rec).Run(); err != nil {
					return err
				}
			}

			for _, check := range []error{
				forms.ValidateEmail(rec.Email),
				forms.ValidateRequired("code")(rec.Code),
				forms.ValidatePassword(rec.Password),
			} {
				if check != nil {
					return check
				}
			}
			if err := app.Manager.ResetPassword(ctx, rec.Reset()); err != nil {
				return err
			}
			fmt.Fprintln(out, "Password changed, run `fichaje login` with the new one")
			return nil
		},
	}

	cmd.Flags().StringVar(&rec.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&rec.SendTo, "send-to", "", "Mailbox that receives the code")
	cmd.Flags().StringVar(&rec.Code, "code", "", "Code from the recovery email")
	cmd.Flags().StringVar(&rec.Password, "password", "", "New password")

	return cmd
}
