package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/fichaje-tui/internal/services"
	"github.com/j-veylop/fichaje-tui/internal/tracking"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// ClockTickInterval moves the stopwatch.
	ClockTickInterval = time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second

	// actionTimeout bounds every backend call started from the UI.
	actionTimeout = 30 * time.Second
)

// Action names carried by ActionResultMsg.
const (
	ActionClockIn       = "clock-in"
	ActionClockOut      = "clock-out"
	ActionOvertime      = "overtime"
	ActionDelete        = "delete"
	ActionDeleteAll     = "delete-all"
	ActionLogin         = "login"
	ActionRegister      = "register"
	ActionLogout        = "logout"
	ActionProfile       = "profile"
	ActionDeleteAccount = "delete-account"
)

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// ClockTick schedules the next stopwatch update.
func ClockTick() tea.Cmd {
	return tea.Tick(ClockTickInterval, func(t time.Time) tea.Msg {
		return ClockTickMsg{Time: t}
	})
}

func actionContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), actionTimeout)
}

// cachedSnapshotCmd shows the sqlite copy while the first refresh runs.
func cachedSnapshotCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		snap, err := mgr.CachedSnapshot()
		if err != nil {
			return nil
		}
		return SnapshotLoadedMsg{Snapshot: snap}
	}
}

// refreshCmd fetches history and the open record.
func refreshCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := actionContext()
		defer cancel()
		snap, err := mgr.Refresh(ctx)
		return SnapshotLoadedMsg{Snapshot: snap, Err: err}
	}
}

func clockInCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := actionContext()
		defer cancel()
		rec, err := mgr.ClockIn(ctx)
		if err != nil {
			return ActionResultMsg{Action: ActionClockIn, Err: err}
		}
		return ActionResultMsg{
			Action:  ActionClockIn,
			Message: "Clocked in at " + rec.Start.Local().Format("15:04"),
		}
	}
}

func clockOutCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := actionContext()
		defer cancel()
		rec, err := mgr.ClockOut(ctx)
		if err != nil {
			return ActionResultMsg{Action: ActionClockOut, Err: err}
		}
		msg := "Clocked out"
		if rec.End != nil {
			msg = fmt.Sprintf("Clocked out after %s",
				tracking.FormatHHMMSS(tracking.ElapsedSeconds(rec.Start.Time, rec.End.Time)))
		}
		return ActionResultMsg{Action: ActionClockOut, Message: msg}
	}
}

func toggleOvertimeCmd(mgr *services.Manager, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := actionContext()
		defer cancel()
		rec, err := mgr.ToggleOvertime(ctx, id)
		if err != nil {
			return ActionResultMsg{Action: ActionOvertime, Err: err}
		}
		msg := "Marked as regular time"
		if rec.Overtime {
			msg = "Marked as overtime"
		}
		return ActionResultMsg{Action: ActionOvertime, Message: msg}
	}
}

func deleteRecordsCmd(mgr *services.Manager, ids []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := actionContext()
		defer cancel()
		if err := mgr.DeleteRecords(ctx, ids); err != nil {
			return ActionResultMsg{Action: ActionDelete, Err: err}
		}
		return ActionResultMsg{Action: ActionDelete, Message: fmt.Sprintf("Deleted %d record(s)", len(ids))}
	}
}

func deleteHistoryCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := actionContext()
		defer cancel()
		if err := mgr.DeleteHistory(ctx); err != nil {
			return ActionResultMsg{Action: ActionDeleteAll, Err: err}
		}
		return ActionResultMsg{Action: ActionDeleteAll, Message: "History deleted"}
	}
}

func loginCmd(mgr *services.Manager, msg LoginRequestMsg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := actionContext()
		defer cancel()
		sess, err := mgr.Login(ctx, msg.Email, msg.Password)
		if err != nil {
			return ActionResultMsg{Action: ActionLogin, Err: err}
		}
		return ActionResultMsg{Action: ActionLogin, Message: "Welcome, " + sess.User.Name}
	}
}

func registerCmd(mgr *services.Manager, msg RegisterRequestMsg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := actionContext()
		defer cancel()
		sess, err := mgr.Register(ctx, msg.Request)
		if err != nil {
			return ActionResultMsg{Action: ActionRegister, Err: err}
		}
		return ActionResultMsg{Action: ActionRegister, Message: "Account created for " + sess.User.Email}
	}
}

func logoutCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		if err := mgr.Logout(); err != nil {
			return ActionResultMsg{Action: ActionLogout, Err: err}
		}
		return ActionResultMsg{Action: ActionLogout, Message: "Logged out"}
	}
}

func updateProfileCmd(mgr *services.Manager, msg UpdateProfileMsg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := actionContext()
		defer cancel()
		result, err := mgr.UpdateProfile(ctx, msg.Update)
		if err != nil {
			return ActionResultMsg{Action: ActionProfile, Err: err}
		}
		if result.PasswordChanged {
			return ActionResultMsg{Action: ActionProfile, Message: "Password changed, please log in again"}
		}
		return ActionResultMsg{Action: ActionProfile, Message: "Profile updated"}
	}
}

func deleteAccountCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := actionContext()
		defer cancel()
		if err := mgr.DeleteAccount(ctx); err != nil {
			return ActionResultMsg{Action: ActionDeleteAccount, Err: err}
		}
		return ActionResultMsg{Action: ActionDeleteAccount, Message: "Account deleted"}
	}
}

// actionErrorText turns the manager sentinels into user-facing text.
func actionErrorText(action string, err error) string {
	switch {
	case errors.Is(err, services.ErrAlreadyClockedIn):
		return "You are already clocked in"
	case errors.Is(err, services.ErrNoOpenRecord):
		return "You are not clocked in"
	}
	return fmt.Sprintf("%s failed: %v", action, err)
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

func notifyCmd(t NotificationType, message string, d time.Duration) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: d}
	}
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return notifyCmd(NotificationSuccess, message, DefaultNotificationDuration)
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return notifyCmd(NotificationError, message, LongNotificationDuration)
}

// notifyWarningCmd returns a command that adds a warning notification.
func notifyWarningCmd(message string) tea.Cmd {
	return notifyCmd(NotificationWarning, message, DefaultNotificationDuration)
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return notifyCmd(NotificationInfo, message, QuickNotificationDuration)
}

// delayedCmd returns a command that sends a message after a delay.
func delayedCmd(delay time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return msg
	})
}

// Commands provides a public interface to the command functions.
type Commands struct {
	manager *services.Manager
}

// NewCommands creates a new Commands instance.
func NewCommands(mgr *services.Manager) *Commands {
	return &Commands{manager: mgr}
}

// Tick returns a tick command with the specified interval.
func (c *Commands) Tick(interval time.Duration) tea.Cmd {
	return tickCmd(interval)
}

// DefaultTick returns a tick command with the default interval.
func (c *Commands) DefaultTick() tea.Cmd {
	return defaultTickCmd()
}

// Refresh returns a command that fetches the history.
func (c *Commands) Refresh() tea.Cmd {
	if c.manager == nil {
		return nil
	}
	return refreshCmd(c.manager)
}

// NotifySuccess returns a command that adds a success notification.
func (c *Commands) NotifySuccess(message string) tea.Cmd {
	return notifySuccessCmd(message)
}

// NotifyError returns a command that adds an error notification.
func (c *Commands) NotifyError(message string) tea.Cmd {
	return notifyErrorCmd(message)
}

// NotifyWarning returns a command that adds a warning notification.
func (c *Commands) NotifyWarning(message string) tea.Cmd {
	return notifyWarningCmd(message)
}

// NotifyInfo returns a command that adds an info notification.
func (c *Commands) NotifyInfo(message string) tea.Cmd {
	return notifyInfoCmd(message)
}

// ClearNotification returns a command that removes a notification after a delay.
func (c *Commands) ClearNotification(id string, delay time.Duration) tea.Cmd {
	return clearNotificationCmd(id, delay)
}

// Quit returns a command that quits the application.
func (c *Commands) Quit() tea.Cmd {
	return tea.Quit
}

// Delayed returns a command that sends a message after a delay.
func (c *Commands) Delayed(delay time.Duration, msg tea.Msg) tea.Cmd {
	return delayedCmd(delay, msg)
}

// Batch combines multiple commands into one.
func (c *Commands) Batch(cmds ...tea.Cmd) tea.Cmd {
	return tea.Batch(cmds...)
}
