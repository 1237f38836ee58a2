// Package forms builds the huh forms shared by the TUI and the CLI.
package forms

import (
	"errors"
	"net/mail"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/services/backend"
	"github.com/j-veylop/fichaje-tui/internal/ui/styles"
)

// MinPasswordLength mirrors the backend rule for new passwords.
const MinPasswordLength = 6

// Credentials is bound to the login form.
type Credentials struct {
	Email    string
	Password string
}

// Registration is bound to the sign-up form.
type Registration struct {
	Name     string
	Email    string
	Password string
	Rate     string
}

// Request converts the form values. Validation already ran on submit.
func (r *Registration) Request() backend.RegisterRequest {
	rate, _ := ParseRate(r.Rate)
	return backend.RegisterRequest{
		Name:       strings.TrimSpace(r.Name),
		Email:      strings.TrimSpace(r.Email),
		Password:   r.Password,
		HourlyRate: rate,
	}
}

// Recovery is bound to the two password recovery forms. Email is the
// account address, SendTo the mailbox that receives the code.
type Recovery struct {
	Email    string
	SendTo   string
	Code     string
	Password string
}

// Request converts the first step.
func (r *Recovery) Request() backend.RecoveryRequest {
	return backend.RecoveryRequest{
		Email:  strings.TrimSpace(r.Email),
		SendTo: strings.TrimSpace(r.SendTo),
	}
}

// Reset converts the second step.
func (r *Recovery) Reset() backend.PasswordReset {
	return backend.PasswordReset{
		Email:       strings.TrimSpace(r.Email),
		Code:        strings.TrimSpace(r.Code),
		NewPassword: r.Password,
	}
}

// Profile is bound to the profile edit form. It starts from the current
// user so untouched fields are sent back unchanged.
type Profile struct {
	Name     string
	Email    string
	Rate     string
	Currency string
	Photo    string
	Password string
}

// NewProfile fills the form values from a user.
func NewProfile(u models.User) *Profile {
	currency := u.Currency
	if currency == "" {
		currency = models.DefaultCurrency.Label()
	}
	return &Profile{
		Name:     u.Name,
		Email:    u.Email,
		Rate:     u.HourlyRate.String(),
		Currency: currency,
		Photo:    u.Photo,
	}
}

// Update returns only the fields that differ from u.
func (p *Profile) Update(u models.User) backend.ProfileUpdate {
	var upd backend.ProfileUpdate
	if name := strings.TrimSpace(p.Name); name != u.Name {
		upd.Name = name
	}
	if email := strings.TrimSpace(p.Email); email != u.Email {
		upd.Email = email
	}
	if rate, err := ParseRate(p.Rate); err == nil && !rate.Equal(u.HourlyRate) {
		upd.HourlyRate = &rate
	}
	if p.Currency != u.Currency {
		upd.Currency = p.Currency
	}
	// The backend ignores an empty photo, so blank keeps the current one.
	if photo := strings.TrimSpace(p.Photo); photo != "" && photo != u.Photo {
		upd.Photo = photo
	}
	upd.Password = p.Password
	return upd
}

// Theme is the huh theme matching the TUI palette.
func Theme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(styles.Primary)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(styles.Success)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(styles.TextPrimary)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(styles.Primary).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(styles.TextMuted).Padding(0, 1)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(styles.Primary)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(styles.Primary)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(styles.TextPrimary)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(styles.TextMuted)
	t.Focused.Description = lipgloss.NewStyle().Foreground(styles.TextMuted)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(styles.Error)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(styles.TextMuted)
	t.Blurred.SelectSelector = lipgloss.NewStyle().Foreground(styles.TextMuted)
	t.Blurred.SelectedOption = lipgloss.NewStyle().Foreground(styles.TextMuted)
	t.Blurred.UnselectedOption = lipgloss.NewStyle().Foreground(styles.TextMuted)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(styles.TextMuted)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(styles.TextMuted)

	return t
}

// Login builds the email/password form.
func Login(c *Credentials) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&c.Email).
				Validate(ValidateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&c.Password).
				Validate(ValidateRequired("password")),
		),
	).WithTheme(Theme()).WithShowHelp(false)
}

// Register builds the sign-up form.
func Register(r *Registration) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&r.Name).
				Validate(ValidateRequired("name")),
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&r.Email).
				Validate(ValidateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&r.Password).
				Validate(ValidatePassword),
			huh.NewInput().
				Title("Hourly rate").
				Placeholder("12.50").
				Value(&r.Rate).
				Validate(ValidateRate),
		),
	).WithTheme(Theme()).WithShowHelp(false)
}

// RequestRecovery builds the form asking where to send a recovery code.
func RequestRecovery(r *Recovery) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Account email").
				Placeholder("you@example.com").
				Value(&r.Email).
				Validate(ValidateEmail),
			huh.NewInput().
				Title("Send the code to").
				Description("Any mailbox you can read. The code expires in 5 minutes.").
				Value(&r.SendTo).
				Validate(ValidateEmail),
		),
	).WithTheme(Theme()).WithShowHelp(false)
}

// ResetPassword builds the form that redeems a recovery code.
func ResetPassword(r *Recovery) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Account email").
				Value(&r.Email).
				Validate(ValidateEmail),
			huh.NewInput().
				Title("Code").
				Value(&r.Code).
				Validate(ValidateRequired("code")),
			huh.NewInput().
				Title("New password").
				EchoMode(huh.EchoModePassword).
				Value(&r.Password).
				Validate(ValidatePassword),
		),
	).WithTheme(Theme()).WithShowHelp(false)
}

// EditProfile builds the profile form. A blank password keeps the current
// one.
func EditProfile(p *Profile) *huh.Form {
	options := make([]huh.Option[string], 0, len(models.Currencies))
	for _, c := range models.Currencies {
		options = append(options, huh.NewOption(c.Label(), c.Label()))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&p.Name).
				Validate(ValidateRequired("name")),
			huh.NewInput().
				Title("Email").
				Value(&p.Email).
				Validate(ValidateEmail),
			huh.NewInput().
				Title("Hourly rate").
				Value(&p.Rate).
				Validate(ValidateRate),
			huh.NewSelect[string]().
				Title("Currency").
				Options(options...).
				Value(&p.Currency),
			huh.NewInput().
				Title("Photo URL").
				Placeholder("https://example.com/me.png").
				Value(&p.Photo).
				Validate(ValidatePhotoURL),
			huh.NewInput().
				Title("New password").
				Description("Leave blank to keep the current one. Changing it logs you out.").
				EchoMode(huh.EchoModePassword).
				Value(&p.Password).
				Validate(validateOptionalPassword),
		),
	).WithTheme(Theme()).WithShowHelp(false)
}

// Confirm builds a yes/no form.
func Confirm(title string, result *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(result),
		),
	).WithTheme(Theme()).WithShowHelp(false)
}

// ValidateRequired rejects blank input.
func ValidateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}

// ValidateEmail accepts a single bare address.
func ValidateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("email is required")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return errors.New("enter a valid email")
	}
	return nil
}

// ValidatePhotoURL accepts a blank value or an absolute http(s) URL.
func ValidatePhotoURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("enter an http or https URL")
	}
	return nil
}

// ValidatePassword enforces the minimum length.
func ValidatePassword(s string) error {
	if len(s) < MinPasswordLength {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

func validateOptionalPassword(s string) error {
	if s == "" {
		return nil
	}
	return ValidatePassword(s)
}

// ValidateRate accepts a non-negative decimal.
func ValidateRate(s string) error {
	_, err := ParseRate(s)
	return err
}

// ParseRate reads an hourly rate. A comma works as decimal separator.
func ParseRate(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Zero, errors.New("hourly rate is required")
	}
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.New("enter a number like 12.50")
	}
	if rate.IsNegative() {
		return decimal.Zero, errors.New("hourly rate cannot be negative")
	}
	return rate, nil
}
