package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/services/backend/backendtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRoundTripper stubs the HTTP transport.
type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.RoundTripFunc(req)
}

func newTestClient(t *testing.T) (*Client, *backendtest.Server) {
	t.Helper()
	srv := backendtest.New(t)
	c := New(Config{
		BaseURL:           srv.APIURL(),
		RetryBackoff:      time.Millisecond,
		RequestsPerSecond: 1000,
		Burst:             100,
	})
	return c, srv
}

func TestLoginAndProfile(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	srv.SetClock(now)

	require.NoError(t, c.Register(ctx, RegisterRequest{
		Name: "Ana", Email: "ana@example.com", Password: "secret", HourlyRate: decimal.NewFromInt(10),
	}))

	err := c.Register(ctx, RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "x"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Message, "registrado")

	s, err := c.Login(ctx, "ana@example.com", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, s.Token)
	assert.Equal(t, "Ana", s.User.Name)
	assert.True(t, now.Add(backendtest.TokenTTL).Equal(s.ExpiresAt), "expiry %v", s.ExpiresAt)
	assert.True(t, s.Valid(now))

	u, err := c.Profile(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, u.ID)
	assert.Equal(t, "10", u.Rate().String())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	c, srv := newTestClient(t)
	srv.AddUser("Ana", "ana@example.com", "secret", decimal.Zero)

	_, err := c.Login(context.Background(), "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegisterRequiresCredentials(t *testing.T) {
	c, srv := newTestClient(t)
	assert.Error(t, c.Register(context.Background(), RegisterRequest{Email: "a@b.c"}))
	assert.Equal(t, 0, srv.Hits("register"))
}

func TestCallsWithoutSession(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.History(ctx, models.Session{})
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = c.ClockIn(ctx, models.Session{})
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, c.DeleteHistory(ctx, models.Session{}), ErrNoSession)
}

func TestClockInOutFlow(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	srv.SetClock(start)

	u := srv.AddUser("Ana", "ana@example.com", "secret", decimal.NewFromInt(10))
	s := srv.Session(t, u.ID)

	cur, err := c.Current(ctx, s)
	require.NoError(t, err)
	assert.Nil(t, cur)

	rec, err := c.ClockIn(ctx, s)
	require.NoError(t, err)
	assert.True(t, rec.Open())
	assert.True(t, rec.Start.Equal(start))

	_, err = c.ClockIn(ctx, s)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	cur, err = c.Current(ctx, s)
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, rec.ID, cur.ID)

	srv.SetClock(start.Add(4*time.Hour + 30*time.Minute))
	closed, err := c.ClockOut(ctx, s, rec.ID)
	require.NoError(t, err)
	assert.False(t, closed.Open())
	require.NotNil(t, closed.DurationHours)
	assert.Equal(t, "4.5", closed.DurationHours.String())
	assert.Equal(t, "45", closed.Amount.String())

	marked, err := c.SetOvertime(ctx, s, rec.ID, true)
	require.NoError(t, err)
	assert.True(t, marked.Overtime)

	hist, err := c.History(ctx, s)
	require.NoError(t, err)
	require.Len(t, hist.Records, 1)
	assert.True(t, hist.Records[0].Overtime)
	assert.Equal(t, "4.5", hist.Totals.Week.String())

	_, err = c.ClockOut(ctx, s, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRecords(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	u := srv.AddUser("Ana", "ana@example.com", "secret", decimal.Zero)
	s := srv.Session(t, u.ID)

	var ids []string
	for i := range 6 {
		start := models.NewTimestamp(time.Date(2024, 3, 4+i, 8, 0, 0, 0, time.UTC))
		end := models.NewTimestamp(start.Add(time.Hour))
		ids = append(ids, srv.AddRecord(u.ID, models.Fichaje{Start: start, End: &end}).ID)
	}

	require.NoError(t, c.DeleteRecords(ctx, s, ids[:4]))
	assert.Len(t, srv.Records(u.ID), 2)
	assert.Equal(t, 4, srv.Hits("delete"))

	err := c.DeleteRecords(ctx, s, []string{ids[4], "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.DeleteHistory(ctx, s))
	assert.Empty(t, srv.Records(u.ID))
}

func TestUpdateProfile(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	u := srv.AddUser("Ana", "ana@example.com", "secret", decimal.NewFromInt(10))
	s := srv.Session(t, u.ID)

	rate := decimal.RequireFromString("12.75")
	res, err := c.UpdateProfile(ctx, s, ProfileUpdate{HourlyRate: &rate, Currency: "EUR - Euro"})
	require.NoError(t, err)
	assert.False(t, res.PasswordChanged)
	assert.False(t, res.EmailChanged)
	assert.Equal(t, s.Token, res.Session.Token)
	assert.Equal(t, "12.75", res.Session.User.Rate().String())
	assert.Equal(t, "EUR", res.Session.User.CurrencyCode())

	res, err = c.UpdateProfile(ctx, s, ProfileUpdate{Email: "ana@new.example.com"})
	require.NoError(t, err)
	assert.True(t, res.EmailChanged)
	assert.NotEqual(t, s.Token, res.Session.Token)
	assert.False(t, res.Session.ExpiresAt.IsZero())

	res, err = c.UpdateProfile(ctx, res.Session, ProfileUpdate{Password: "n3w"})
	require.NoError(t, err)
	assert.True(t, res.PasswordChanged)

	_, err = c.Login(ctx, "ana@new.example.com", "n3w")
	assert.NoError(t, err)
}

func TestUpdateProfilePhoto(t *testing.T) {
	c, srv := newTestClient(t)
	u := srv.AddUser("Ana", "ana@example.com", "secret", decimal.Zero)

	res, err := c.UpdateProfile(context.Background(), srv.Session(t, u.ID), ProfileUpdate{Photo: "https://example.com/ana.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/ana.png", res.Session.User.Photo)

	stored, ok := srv.User(u.ID)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/ana.png", stored.Photo)
}

func TestPasswordRecovery(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	srv.SetClock(now)
	u := srv.AddUser("Ana", "ana@example.com", "secret", decimal.Zero)

	require.NoError(t, c.RequestPasswordRecovery(ctx, RecoveryRequest{Email: "ana@example.com", SendTo: "backup@example.com"}))
	code, sentTo, ok := srv.RecoveryCode("ana@example.com")
	require.True(t, ok)
	assert.Len(t, code, 6)
	assert.Equal(t, "backup@example.com", sentTo)

	err := c.ResetPassword(ctx, PasswordReset{Email: "ana@example.com", Code: "wrong", NewPassword: "fresh1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.True(t, srv.CheckPassword(u.ID, "secret"))

	require.NoError(t, c.ResetPassword(ctx, PasswordReset{Email: "ana@example.com", Code: code, NewPassword: "fresh1"}))
	assert.True(t, srv.CheckPassword(u.ID, "fresh1"))
	_, _, ok = srv.RecoveryCode("ana@example.com")
	assert.False(t, ok, "a code works once")

	_, err = c.Login(ctx, "ana@example.com", "fresh1")
	assert.NoError(t, err)
}

func TestPasswordRecoveryCodeExpires(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	srv.SetClock(now)
	u := srv.AddUser("Ana", "ana@example.com", "secret", decimal.Zero)

	require.NoError(t, c.RequestPasswordRecovery(ctx, RecoveryRequest{Email: "ana@example.com", SendTo: "ana@example.com"}))
	code, _, _ := srv.RecoveryCode("ana@example.com")

	srv.SetClock(now.Add(backendtest.RecoveryTTL + time.Second))
	assert.Error(t, c.ResetPassword(ctx, PasswordReset{Email: "ana@example.com", Code: code, NewPassword: "fresh1"}))
	assert.True(t, srv.CheckPassword(u.ID, "secret"))
}

func TestPasswordRecoveryValidation(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	assert.Error(t, c.RequestPasswordRecovery(ctx, RecoveryRequest{Email: "ana@example.com"}))
	assert.Error(t, c.ResetPassword(ctx, PasswordReset{Email: "ana@example.com", Code: "123456"}))
	assert.Equal(t, 0, srv.Hits("recover-password"))
	assert.Equal(t, 0, srv.Hits("reset-password"))

	err := c.RequestPasswordRecovery(ctx, RecoveryRequest{Email: "nobody@example.com", SendTo: "x@example.com"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestDeleteAccount(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()
	u := srv.AddUser("Ana", "ana@example.com", "secret", decimal.Zero)
	s := srv.Session(t, u.ID)

	require.NoError(t, c.DeleteAccount(ctx, s))
	_, err := c.Profile(ctx, s)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestGetRetriesServerErrors(t *testing.T) {
	c, srv := newTestClient(t)
	u := srv.AddUser("Ana", "ana@example.com", "secret", decimal.Zero)
	s := srv.Session(t, u.ID)

	srv.FailNext(http.StatusServiceUnavailable, http.StatusBadGateway)
	_, err := c.History(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Hits("history"))

	srv.FailNext(http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
	_, err = c.History(context.Background(), s)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}

func TestMutationsAreNotRetried(t *testing.T) {
	c, srv := newTestClient(t)
	u := srv.AddUser("Ana", "ana@example.com", "secret", decimal.Zero)
	s := srv.Session(t, u.ID)

	srv.FailNext(http.StatusServiceUnavailable)
	_, err := c.ClockIn(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, 0, srv.Hits("clock-in"))
	assert.Empty(t, srv.Records(u.ID))
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	c := New(Config{
		BaseURL:      "http://backend.test/api",
		RetryBackoff: time.Millisecond,
		HTTPClient: &http.Client{Transport: &MockRoundTripper{
			RoundTripFunc: func(req *http.Request) (*http.Response, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				return &http.Response{StatusCode: http.StatusForbidden, Body: io.NopCloser(strings.NewReader("nope"))}, nil
			},
		}},
	})

	_, err := c.History(context.Background(), models.Session{Token: "t", User: models.User{ID: "u"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "nope", apiErr.Message)
	assert.Equal(t, 1, calls)
}

func TestNetworkErrorsAreRetried(t *testing.T) {
	calls := 0
	c := New(Config{
		BaseURL:      "http://backend.test/api",
		RetryBackoff: time.Millisecond,
		HTTPClient: &http.Client{Transport: &MockRoundTripper{
			RoundTripFunc: func(req *http.Request) (*http.Response, error) {
				calls++
				return nil, errors.New("connection refused")
			},
		}},
	})

	_, err := c.Current(context.Background(), models.Session{Token: "t", User: models.User{ID: "u"}})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRequestHeaders(t *testing.T) {
	var got *http.Request
	c := New(Config{
		BaseURL: "http://backend.test/api/",
		HTTPClient: &http.Client{Transport: &MockRoundTripper{
			RoundTripFunc: func(req *http.Request) (*http.Response, error) {
				got = req
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`{"historial":[]}`))}, nil
			},
		}},
	})
	assert.Equal(t, "http://backend.test/api", c.BaseURL())

	_, err := c.History(context.Background(), models.Session{Token: "tok", User: models.User{ID: "u"}})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/api/fichajes/historial", got.URL.Path)
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.Len(t, got.Header.Get("X-Request-ID"), 36)
}

func TestContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New(Config{
		BaseURL:      "http://backend.test/api",
		RetryBackoff: time.Hour,
		HTTPClient: &http.Client{Transport: &MockRoundTripper{
			RoundTripFunc: func(req *http.Request) (*http.Response, error) {
				cancel()
				return &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(strings.NewReader(""))}, nil
			},
		}},
	})

	_, err := c.History(ctx, models.Session{Token: "t", User: models.User{ID: "u"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenExpiry(t *testing.T) {
	assert.True(t, TokenExpiry("not-a-jwt").IsZero())
	// {"alg":"none"} header with an exp claim of 1709539200.
	token := "eyJhbGciOiJub25lIn0.eyJleHAiOjE3MDk1MzkyMDB9."
	assert.True(t, time.Unix(1709539200, 0).Equal(TokenExpiry(token)))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "boom", errorMessage([]byte(`{"message":"boom"}`)))
	assert.Equal(t, "bad", errorMessage([]byte(`{"error":"bad"}`)))
	assert.Equal(t, "plain text", errorMessage([]byte(" plain text \n")))
	assert.Len(t, errorMessage([]byte(strings.Repeat("x", 500))), 200)
}

func TestAPIErrorString(t *testing.T) {
	assert.Equal(t, "backend request failed (status 500)", (&APIError{Status: 500}).Error())
	assert.True(t, errors.Is(&APIError{Status: 401}, ErrUnauthorized))
	assert.False(t, errors.Is(&APIError{Status: 403}, ErrUnauthorized))
}
