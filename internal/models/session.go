package models

import "time"

// Session is the authenticated context every backend call receives.
type Session struct {
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
	SavedAt   time.Time `json:"savedAt,omitzero"`
	Token     string    `json:"token"`
	User      User      `json:"user"`
}

// Valid reports whether the session can authenticate requests at now.
func (s Session) Valid(now time.Time) bool {
	if s.Token == "" || s.User.ID == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// Clone returns an independent copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

// WithUser returns a copy carrying an updated profile.
func (s Session) WithUser(u User) Session {
	s.User = u
	return s
}

// WithToken returns a copy carrying a refreshed token.
func (s Session) WithToken(token string, expiresAt time.Time) Session {
	s.Token = token
	s.ExpiresAt = expiresAt
	return s
}

// LoginResponse is the payload of the login endpoint.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UpdateProfileResponse is the payload of a profile update.
type UpdateProfileResponse struct {
	Token           string `json:"token,omitempty"`
	User            User   `json:"user"`
	PasswordChanged bool   `json:"passwordChanged"`
	EmailChanged    bool   `json:"emailChanged"`
}
