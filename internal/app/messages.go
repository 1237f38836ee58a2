package app

import (
	"time"

	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/services"
	"github.com/j-veylop/fichaje-tui/internal/services/backend"
)

// TickMsg is sent periodically to expire notifications.
type TickMsg struct {
	Time time.Time
}

// ClockTickMsg is sent every second to move the stopwatch.
type ClockTickMsg struct {
	Time time.Time
}

// StartLoadingMsg signals that a resource is starting to load.
type StartLoadingMsg struct {
	Resource string
}

// StopLoadingMsg signals that a resource has finished loading.
type StopLoadingMsg struct {
	Resource string
}

// SnapshotLoadedMsg carries the result of a refresh.
type SnapshotLoadedMsg struct {
	Err      error
	Snapshot services.Snapshot
}

// RefreshMsg requests a refresh of the history.
type RefreshMsg struct{}

// ActionResultMsg reports the outcome of a user action.
type ActionResultMsg struct {
	Err     error
	Action  string
	Message string
}

// SessionChangedMsg is forwarded to tabs after login or logout.
type SessionChangedMsg struct {
	Session *models.Session
}

// SnapshotChangedMsg is forwarded to tabs after new records arrive.
type SnapshotChangedMsg struct {
	Snapshot services.Snapshot
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Message  string
	Type     NotificationType
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ClearNotificationsMsg requests clearing all notifications.
type ClearNotificationsMsg struct{}

// ClearExpiredNotificationsMsg triggers clearing of expired notifications.
type ClearExpiredNotificationsMsg struct{}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// QuitMsg requests the application to quit.
type QuitMsg struct{}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}

// FormActiveMsg tells the app a tab is showing a form, so global keys
// must pass through to it.
type FormActiveMsg struct {
	Active bool
}

// ClockToggleMsg clocks in, or out when a record is open.
type ClockToggleMsg struct{}

// ToggleOvertimeMsg flips the overtime flag of a record.
type ToggleOvertimeMsg struct {
	ID string
}

// DeleteRecordsMsg deletes the given records.
type DeleteRecordsMsg struct {
	IDs []string
}

// DeleteHistoryMsg deletes every record of the user.
type DeleteHistoryMsg struct{}

// LoginRequestMsg submits the login form.
type LoginRequestMsg struct {
	Email    string
	Password string
}

// RegisterRequestMsg submits the sign-up form.
type RegisterRequestMsg struct {
	Request backend.RegisterRequest
}

// LogoutMsg ends the session.
type LogoutMsg struct{}

// UpdateProfileMsg submits the profile form.
type UpdateProfileMsg struct {
	Update backend.ProfileUpdate
}

// DeleteAccountMsg deletes the user account.
type DeleteAccountMsg struct{}
