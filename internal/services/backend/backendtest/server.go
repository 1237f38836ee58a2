// Package backendtest provides an in-memory fake of the clock-in/clock-out
// REST API for tests.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/tracking"
	"github.com/shopspring/decimal"
)

var signingKey = []byte("backendtest-secret")

// TokenTTL is how long minted tokens stay valid.
const TokenTTL = 24 * time.Hour

// RecoveryTTL is how long a password recovery code stays valid.
const RecoveryTTL = 5 * time.Minute

type recovery struct {
	code    string
	sentTo  string
	expires time.Time
}

type account struct {
	user     models.User
	password string
}

// Server is a fake backend. Its API root is URL + "/api".
type Server struct {
	*httptest.Server
	now      func() time.Time
	users    map[string]*account
	records  map[string][]models.Fichaje
	codes    map[string]recovery
	hits     map[string]int
	failures []int
	mu       sync.Mutex
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		now:     time.Now,
		users:   make(map[string]*account),
		records: make(map[string][]models.Fichaje),
		codes:   make(map[string]recovery),
		hits:    make(map[string]int),
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

// APIURL is the base URL a client should use.
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

// SetClock pins the server clock.
func (s *Server) SetClock(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = func() time.Time { return now }
}

// FailNext makes the next len(statuses) requests fail with those statuses.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// Hits returns how many requests reached the named route, e.g. "history".
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// AddUser registers a user directly and returns it.
func (s *Server) AddUser(name, email, password string, rate decimal.Decimal) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := models.User{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      email,
		HourlyRate: rate,
		Currency:   models.DefaultCurrency.Label(),
	}
	s.users[u.ID] = &account{user: u, password: password}
	return u
}

// Session mints a valid session for a user added with AddUser.
func (s *Server) Session(t testing.TB, userID string) models.Session {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.users[userID]
	if !ok {
		t.Fatalf("backendtest: unknown user %s", userID)
	}
	token, exp, err := s.mint(userID)
	if err != nil {
		t.Fatalf("backendtest: mint token: %v", err)
	}
	return models.Session{Token: token, User: acc.user, ExpiresAt: exp, SavedAt: s.now()}
}

// AddRecord stores a record for a user. An empty ID gets a fresh one.
func (s *Server) AddRecord(userID string, f models.Fichaje) models.Fichaje {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.User = models.Ref(userID)
	s.records[userID] = append(s.records[userID], f)
	return f
}

// Records returns a copy of the records of a user.
func (s *Server) Records(userID string) []models.Fichaje {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records[userID])
}

// User returns the stored profile.
func (s *Server) User(userID string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.users[userID]
	if !ok {
		return models.User{}, false
	}
	return acc.user, true
}

// RecoveryCode returns the pending recovery code of an account email and
// the address it was mailed to.
func (s *Server) RecoveryCode(email string) (code, sentTo string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc, ok := s.codes[strings.ToLower(email)]
	return rc.code, rc.sentTo, ok
}

// CheckPassword reports whether password is the current one of a user.
func (s *Server) CheckPassword(userID, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.users[userID]
	return ok && acc.password == password
}

func (s *Server) mint(userID string) (string, time.Time, error) {
	exp := s.now().Add(TokenTTL).Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	return token, exp, err
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.injectFailures)

	api.HandleFunc("/users/register", s.route("register", s.register)).Methods(http.MethodPost)
	api.HandleFunc("/users/login", s.route("login", s.login)).Methods(http.MethodPost)
	api.HandleFunc("/users/recover-password", s.route("recover-password", s.recoverPassword)).Methods(http.MethodPost)
	api.HandleFunc("/users/reset-password", s.route("reset-password", s.resetPassword)).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.authenticate)
	authed.HandleFunc("/users/me/{id}", s.route("profile", s.profile)).Methods(http.MethodGet)
	authed.HandleFunc("/users/me/{id}", s.route("update-profile", s.updateProfile)).Methods(http.MethodPut)
	authed.HandleFunc("/users/me/{id}", s.route("delete-account", s.deleteAccount)).Methods(http.MethodDelete)
	authed.HandleFunc("/fichajes/entrada", s.route("clock-in", s.clockIn)).Methods(http.MethodPost)
	authed.HandleFunc("/fichajes/salida/{id}", s.route("clock-out", s.clockOut)).Methods(http.MethodPut)
	authed.HandleFunc("/fichajes/extra/{id}", s.route("overtime", s.overtime)).Methods(http.MethodPut)
	authed.HandleFunc("/fichajes/historial", s.route("history", s.history)).Methods(http.MethodGet)
	authed.HandleFunc("/fichajes/actual", s.route("current", s.current)).Methods(http.MethodGet)
	authed.HandleFunc("/fichajes/eliminar-historial", s.route("delete-history", s.deleteHistory)).Methods(http.MethodDelete)
	authed.HandleFunc("/fichajes/eliminar/{id}", s.route("delete", s.deleteRecord)).Methods(http.MethodDelete)
	return r
}

type ctxKey struct{}

func (s *Server) route(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[name]++
		s.mu.Unlock()
		h(w, r)
	}
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var status int
		if len(s.failures) > 0 {
			status = s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()
		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Token requerido")
			return
		}

		s.mu.Lock()
		now := s.now
		s.mu.Unlock()

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return signingKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(now))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token inválido")
			return
		}

		s.mu.Lock()
		_, exists := s.users[claims.Subject]
		s.mu.Unlock()
		if !exists {
			writeError(w, http.StatusUnauthorized, "Usuario no encontrado")
			return
		}

		r = r.WithContext(contextWithUser(r, claims.Subject))
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// closeRecord stamps the end and computes the server-side duration and
// amount, rounded to cents and hundredths of an hour.
func closeRecord(f *models.Fichaje, end time.Time, rate decimal.Decimal) {
	ts := models.NewTimestamp(end)
	f.End = &ts
	hours := tracking.HoursFromSeconds(tracking.ElapsedSeconds(f.Start.Time, end)).Round(2)
	amount := hours.Mul(rate).Round(2)
	f.DurationHours = &hours
	f.Amount = &amount
}
