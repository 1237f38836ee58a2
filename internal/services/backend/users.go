package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/shopspring/decimal"
)

// RegisterRequest is the body of a sign-up.
type RegisterRequest struct {
	Name       string          `json:"nombre"`
	Email      string          `json:"email"`
	Password   string          `json:"password"`
	HourlyRate decimal.Decimal `json:"valorHora"`
}

// ProfileUpdate carries the profile fields to change. Empty strings and a
// nil rate leave the field untouched.
type ProfileUpdate struct {
	HourlyRate *decimal.Decimal `json:"valorHora,omitempty"`
	Name       string           `json:"nombre,omitempty"`
	Email      string           `json:"email,omitempty"`
	Photo      string           `json:"foto,omitempty"`
	Password   string           `json:"password,omitempty"`
	Currency   string           `json:"moneda,omitempty"`
}

// ProfileResult is the outcome of UpdateProfile.
type ProfileResult struct {
	// Session carries the new profile and, when the backend rotated it,
	// the new token.
	Session         models.Session
	PasswordChanged bool
	EmailChanged    bool
}

// RecoveryRequest asks the backend to mail a password reset code. SendTo
// may differ from the account address.
type RecoveryRequest struct {
	Email  string `json:"email"`
	SendTo string `json:"destino"`
}

// PasswordReset redeems a recovery code.
type PasswordReset struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if req.Email == "" || req.Password == "" {
		return fmt.Errorf("email and password are required")
	}
	if err := c.do(ctx, http.MethodPost, "/users/register", "", req, nil); err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}
	return nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (models.Session, error) {
	var resp models.LoginResponse
	err := c.do(ctx, http.MethodPost, "/users/login", "", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to log in: %w", err)
	}
	if resp.Token == "" {
		return models.Session{}, fmt.Errorf("failed to log in: empty token in response")
	}

	return models.Session{
		Token:     resp.Token,
		User:      resp.User,
		ExpiresAt: TokenExpiry(resp.Token),
		SavedAt:   time.Now(),
	}, nil
}

// RequestPasswordRecovery mails a reset code. It needs no session.
func (c *Client) RequestPasswordRecovery(ctx context.Context, req RecoveryRequest) error {
	if req.Email == "" || req.SendTo == "" {
		return fmt.Errorf("account email and destination email are required")
	}
	if err := c.do(ctx, http.MethodPost, "/users/recover-password", "", req, nil); err != nil {
		return fmt.Errorf("failed to request password recovery: %w", err)
	}
	return nil
}

// ResetPassword sets a new password with a code from
// RequestPasswordRecovery.
func (c *Client) ResetPassword(ctx context.Context, req PasswordReset) error {
	if req.Email == "" || req.Code == "" || req.NewPassword == "" {
		return fmt.Errorf("email, code and new password are required")
	}
	if err := c.do(ctx, http.MethodPost, "/users/reset-password", "", req, nil); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	return nil
}

// Profile fetches the current user profile.
func (c *Client) Profile(ctx context.Context, s models.Session) (models.User, error) {
	if err := requireSession(s); err != nil {
		return models.User{}, err
	}
	var user models.User
	if err := c.get(ctx, userPath(s), s.Token, &user); err != nil {
		return models.User{}, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return user, nil
}

// UpdateProfile changes profile fields. When the backend rotates the token
// the returned session carries it.
func (c *Client) UpdateProfile(ctx context.Context, s models.Session, update ProfileUpdate) (ProfileResult, error) {
	if err := requireSession(s); err != nil {
		return ProfileResult{}, err
	}

	var resp models.UpdateProfileResponse
	if err := c.do(ctx, http.MethodPut, userPath(s), s.Token, update, &resp); err != nil {
		return ProfileResult{}, fmt.Errorf("failed to update profile: %w", err)
	}

	next := s
	if resp.User.ID != "" {
		next = next.WithUser(resp.User)
	}
	if resp.Token != "" {
		next = next.WithToken(resp.Token, TokenExpiry(resp.Token))
	}

	return ProfileResult{
		Session:         next,
		PasswordChanged: resp.PasswordChanged,
		EmailChanged:    resp.EmailChanged,
	}, nil
}

// DeleteAccount removes the user and all of its records.
func (c *Client) DeleteAccount(ctx context.Context, s models.Session) error {
	if err := requireSession(s); err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, userPath(s), s.Token, nil, nil); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

func userPath(s models.Session) string {
	return "/users/me/" + url.PathEscape(s.User.ID)
}

// TokenExpiry reads the exp claim of a JWT without verifying the
// signature. Zero means unknown.
func TokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
