package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/services"
)

func testSession() *models.Session {
	return &models.Session{
		Token:     "token",
		ExpiresAt: time.Now().Add(time.Hour),
		User: models.User{
			ID:         "u1",
			Name:       "Ana",
			Email:      "ana@example.com",
			HourlyRate: decimal.NewFromInt(12),
		},
	}
}

func openRecord(start time.Time) *models.Fichaje {
	return &models.Fichaje{ID: "open", Start: models.NewTimestamp(start)}
}

func TestNewState(t *testing.T) {
	s := NewState()
	if s == nil {
		t.Fatal("NewState returned nil")
	}
	if s.LoggedIn() {
		t.Error("new state should be logged out")
	}
	if s.Loading.Initial != true {
		t.Error("Initial loading should be true")
	}
	if s.Location() != time.Local {
		t.Errorf("Location = %v, want Local", s.Location())
	}
}

func TestState_SetLocation(t *testing.T) {
	s := NewState()
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Skip("tzdata not available")
	}
	s.SetLocation(madrid)
	if s.Location() != madrid {
		t.Errorf("Location = %v, want Europe/Madrid", s.Location())
	}
	s.SetLocation(nil)
	if s.Location() != time.UTC {
		t.Errorf("nil location should fall back to UTC, got %v", s.Location())
	}
}

func TestState_SetLoading(t *testing.T) {
	s := NewState()

	s.SetLoading("history", true)
	if !s.Loading.History {
		t.Error("History loading should be true")
	}

	s.SetLoading("history", false)
	// Initial is still true
	if !s.AnyLoading() {
		t.Error("AnyLoading should be true (Initial is true)")
	}

	s.SetLoading("initial", false)
	if s.AnyLoading() {
		t.Error("AnyLoading should be false")
	}
	if s.IsInitialLoading() {
		t.Error("IsInitialLoading should be false")
	}

	s.SetLoading("action", true)
	if !s.AnyLoading() {
		t.Error("AnyLoading should be true while an action runs")
	}

	s.SetLoading("unknown", true)
	s.SetLoading("action", false)
	if s.AnyLoading() {
		t.Error("unknown resources must be ignored")
	}
}

func TestState_Session(t *testing.T) {
	s := NewState()
	sess := testSession()
	s.SetSession(sess)

	if !s.LoggedIn() {
		t.Fatal("should be logged in")
	}
	got, ok := s.Session()
	if !ok || got.Token != "token" {
		t.Errorf("Session() = %+v, %v", got, ok)
	}
	if s.User().Email != "ana@example.com" {
		t.Errorf("User().Email = %q", s.User().Email)
	}

	// The state keeps its own copy.
	sess.User.Name = "changed"
	if s.User().Name != "Ana" {
		t.Errorf("state shares the caller's session: %q", s.User().Name)
	}
}

func TestState_LogoutDropsSnapshot(t *testing.T) {
	s := NewState()
	s.SetSession(testSession())
	s.SetSnapshot(services.Snapshot{
		FetchedAt: time.Now(),
		Current:   openRecord(time.Now().Add(-time.Hour)),
	})
	if s.Current() == nil {
		t.Fatal("Current should be set")
	}
	if s.GetLastUpdated().IsZero() {
		t.Error("LastUpdated should be set")
	}

	s.SetSession(nil)
	if s.LoggedIn() {
		t.Error("should be logged out")
	}
	if s.Current() != nil {
		t.Error("logout should drop the open record")
	}
	if !s.GetLastUpdated().IsZero() {
		t.Error("logout should reset LastUpdated")
	}
	if s.TimeSinceUpdate() != 0 {
		t.Error("TimeSinceUpdate should be 0 without data")
	}
	if s.User().Email != "" {
		t.Error("User should be empty after logout")
	}
}

func TestState_RecordsAndAggregator(t *testing.T) {
	s := NewState()
	s.SetLocation(time.UTC)
	s.SetSession(testSession())

	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	end := models.NewTimestamp(start.Add(2 * time.Hour))
	hours := decimal.NewFromInt(2)
	s.SetSnapshot(services.Snapshot{
		FetchedAt: time.Now(),
		Records: []models.Fichaje{
			{ID: "a", Start: models.NewTimestamp(start), End: &end, DurationHours: &hours},
		},
	})

	records := s.Records()
	if len(records) != 1 {
		t.Fatalf("Records len = %d, want 1", len(records))
	}

	agg := s.Aggregator()
	if !agg.Rate().Equal(decimal.NewFromInt(12)) {
		t.Errorf("Aggregator rate = %s, want 12", agg.Rate())
	}
	if agg.Location() != time.UTC {
		t.Errorf("Aggregator location = %v", agg.Location())
	}
	totals := agg.Summarize(records, start).Today
	if !totals.Amount.Equal(decimal.NewFromInt(24)) {
		t.Errorf("today amount = %s, want 24", totals.Amount)
	}
}

func TestState_Notifications(t *testing.T) {
	s := NewState()

	id := s.AddNotification(NotificationInfo, "test", time.Minute)
	if id == "" {
		t.Error("AddNotification returned empty ID")
	}

	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Errorf("GetNotifications len = %d, want 1", len(notifs))
	}
	if notifs[0].Message != "test" {
		t.Errorf("Notification message = %s, want test", notifs[0].Message)
	}

	other := s.AddNotification(NotificationInfo, "again", time.Minute)
	if other == id {
		t.Error("notification IDs must be unique")
	}

	s.RemoveNotification(id)
	if len(s.GetNotifications()) != 1 {
		t.Error("Notification should be removed")
	}

	s.ClearAllNotifications()
	if len(s.GetNotifications()) != 0 {
		t.Error("ClearAllNotifications should remove everything")
	}
}

func TestState_NotificationLimit(t *testing.T) {
	s := NewState()
	for range maxNotifications + 5 {
		s.AddNotification(NotificationInfo, "n", time.Minute)
	}
	if got := len(s.GetNotifications()); got != maxNotifications {
		t.Errorf("len = %d, want %d", got, maxNotifications)
	}
}

func TestState_ClearExpiredNotifications(t *testing.T) {
	s := NewState()

	// Expired
	s.notifications = append(s.notifications, Notification{
		ID:        "expired",
		CreatedAt: time.Now().Add(-2 * time.Minute),
		Duration:  time.Minute,
	})

	// Active
	s.notifications = append(s.notifications, Notification{
		ID:        "active",
		CreatedAt: time.Now(),
		Duration:  time.Minute,
	})

	s.ClearExpiredNotifications()

	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].ID != "active" {
		t.Errorf("Expected active notification, got %s", notifs[0].ID)
	}
}

func TestState_LoadingNotification(t *testing.T) {
	s := NewState()

	s.SetLoadingNotification("loading...")
	notifs := s.GetNotifications()
	if len(notifs) != 1 {
		t.Errorf("Expected 1 notification, got %d", len(notifs))
	}
	if notifs[0].ID != LoadingNotificationID {
		t.Errorf("Expected ID %s, got %s", LoadingNotificationID, notifs[0].ID)
	}

	// Update message
	s.SetLoadingNotification("still loading...")
	notifs = s.GetNotifications()
	if len(notifs) != 1 {
		t.Errorf("Expected 1 notification after update")
	}
	if notifs[0].Message != "still loading..." {
		t.Errorf("Expected message still loading..., got %s", notifs[0].Message)
	}

	s.ClearLoadingNotification()
	if len(s.GetNotifications()) != 0 {
		t.Error("Loading notification should be cleared")
	}
}

func TestNotificationType_String(t *testing.T) {
	tests := []struct {
		t    NotificationType
		want string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
		{NotificationLoading, "loading"},
		{NotificationType(999), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
