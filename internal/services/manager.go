// Package services provides service orchestration for the TUI and the CLI.
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/fichaje-tui/internal/config"
	"github.com/j-veylop/fichaje-tui/internal/db"
	"github.com/j-veylop/fichaje-tui/internal/logger"
	"github.com/j-veylop/fichaje-tui/internal/models"
	"github.com/j-veylop/fichaje-tui/internal/services/backend"
	"github.com/j-veylop/fichaje-tui/internal/services/session"
	"github.com/j-veylop/fichaje-tui/internal/tracking"
)

var (
	// ErrNoOpenRecord is returned by ClockOut when nothing is running.
	ErrNoOpenRecord = errors.New("no open record to clock out")
	// ErrAlreadyClockedIn is returned by ClockIn while a record is open.
	ErrAlreadyClockedIn = errors.New("already clocked in")
)

type (
	// SessionChangedEvent is emitted on login, logout and external session changes.
	// Session is nil once logged out.
	SessionChangedEvent struct {
		Session *models.Session
	}

	// HistoryUpdatedEvent is emitted after every refresh or local change.
	HistoryUpdatedEvent struct {
		Snapshot Snapshot
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}

	// ShiftReminderEvent is emitted once per open record when it crosses the
	// configured shift length.
	ShiftReminderEvent struct {
		Record  models.Fichaje
		Elapsed int64
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (SessionChangedEvent) isServiceEvent() {}
func (HistoryUpdatedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()          {}
func (ShiftReminderEvent) isServiceEvent()  {}

// Snapshot is the last known state of the logged-in user's records.
type Snapshot struct {
	FetchedAt time.Time
	Current   *models.Fichaje
	Records   []models.Fichaje
	// Totals are the week and month hours the backend computed.
	Totals  models.HistoryTotals
	Summary tracking.Summary
	// Offline is set when the records came from the local cache.
	Offline bool
}

// Manager orchestrates services and event routing.
type Manager struct {
	cfg         *config.Config
	client      *backend.Client
	sessions    *session.Service
	database    *db.DB
	notify      func(title, message string) error
	now         func() time.Time
	stopChan    chan struct{}
	reminded    map[string]bool
	subscribers []chan<- ServiceEvent
	snapshot    Snapshot
	wg          sync.WaitGroup
	refreshMu   sync.Mutex
	mu          sync.RWMutex
	closeOnce   sync.Once
	polling     bool
}

// NewManager creates a new service manager.
func NewManager(cfg *config.Config) (*Manager, error) {
	m := &Manager{
		cfg:      cfg,
		stopChan: make(chan struct{}),
		reminded: make(map[string]bool),
		now:      time.Now,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}

	var err error
	m.sessions, err = session.New(cfg.SessionPath)
	if err != nil {
		return nil, err
	}

	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		_ = m.sessions.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	clientConfig := backend.DefaultConfig()
	clientConfig.BaseURL = cfg.APIURL
	if cfg.RequestsPerSecond > 0 {
		clientConfig.RequestsPerSecond = cfg.RequestsPerSecond
	}
	m.client = backend.New(clientConfig)

	m.wg.Add(1)
	go m.routeEvents()

	return m, nil
}

// Start begins polling the backend every RefreshInterval.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.polling {
		m.mu.Unlock()
		return
	}
	m.polling = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.pollLoop()
}

func (m *Manager) pollLoop() {
	defer m.wg.Done()

	interval := m.cfg.RefreshInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.refreshInBackground()
	for {
		select {
		case <-ticker.C:
			m.refreshInBackground()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) refreshInBackground() {
	if _, ok := m.Session(); !ok {
		return
	}
	ctx, cancel := m.context()
	defer cancel()
	if _, err := m.Refresh(ctx); err != nil {
		logger.Warn("background refresh failed", "error", err)
	}
}

// context returns a context cancelled when the manager closes.
func (m *Manager) context() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-m.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// routeEvents converts session store events into service events.
func (m *Manager) routeEvents() {
	defer m.wg.Done()
	for {
		select {
		case event := <-m.sessions.Events():
			m.handleSessionEvent(event)
		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleSessionEvent(event session.Event) {
	switch event.Type {
	case session.EventLoaded, session.EventSaved, session.EventChanged:
		m.broadcast(SessionChangedEvent{Session: event.Session})

		m.mu.RLock()
		polling := m.polling
		m.mu.RUnlock()
		if event.Type == session.EventChanged && polling {
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				m.refreshInBackground()
			}()
		}

	case session.EventCleared:
		m.resetSnapshot()
		m.broadcast(SessionChangedEvent{})

	case session.EventError:
		m.broadcast(ErrorEvent{Service: "session", Error: event.Error})
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Client returns the backend client.
func (m *Manager) Client() *backend.Client {
	return m.client
}

// Sessions returns the session store.
func (m *Manager) Sessions() *session.Service {
	return m.sessions
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Session returns the stored session when it is still usable.
func (m *Manager) Session() (models.Session, bool) {
	sess, ok := m.sessions.Get()
	if !ok || !sess.Valid(m.now()) {
		return models.Session{}, false
	}
	return sess, true
}

func (m *Manager) requireSession() (models.Session, error) {
	sess, ok := m.Session()
	if !ok {
		return models.Session{}, backend.ErrNoSession
	}
	return sess, nil
}

// Aggregator returns an aggregator for the user's rate in the configured
// timezone.
func (m *Manager) Aggregator(user models.User) *tracking.Aggregator {
	return tracking.NewAggregator(m.cfg.Location, user.Rate())
}

// Snapshot returns the last known state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

func (m *Manager) resetSnapshot() {
	m.mu.Lock()
	m.snapshot = Snapshot{}
	m.reminded = make(map[string]bool)
	m.mu.Unlock()
}

func (m *Manager) buildSnapshot(sess models.Session, records []models.Fichaje, totals models.HistoryTotals, current *models.Fichaje, offline bool) Snapshot {
	now := m.now()
	if current == nil {
		for i := range records {
			if records[i].Open() {
				current = &records[i]
				break
			}
		}
	}
	var cur *models.Fichaje
	if current != nil {
		c := *current
		cur = &c
	}
	return Snapshot{
		FetchedAt: now,
		Current:   cur,
		Records:   records,
		Totals:    totals,
		Summary:   m.Aggregator(sess.User).Summarize(models.Records(records), now),
		Offline:   offline,
	}
}

func (m *Manager) publish(snap Snapshot) {
	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()

	m.broadcast(HistoryUpdatedEvent{Snapshot: snap})
	m.checkShift(snap)
}

// Refresh fetches history and the open record. When the backend is
// unreachable the cached records are published instead, marked Offline,
// and the fetch error is still returned.
func (m *Manager) Refresh(ctx context.Context) (Snapshot, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	sess, err := m.requireSession()
	if err != nil {
		return Snapshot{}, err
	}

	hist, err := m.client.History(ctx, sess)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			logger.Warn("session rejected by backend, logging out", "user", sess.User.Email)
			if clearErr := m.sessions.Clear(); clearErr != nil {
				logger.Error("failed to clear session", "error", clearErr)
			}
			return Snapshot{}, err
		}
		m.broadcast(ErrorEvent{Service: "backend", Error: err})
		snap, cacheErr := m.CachedSnapshot()
		if cacheErr != nil {
			return Snapshot{}, errors.Join(err, cacheErr)
		}
		m.publish(snap)
		return snap, err
	}

	current, err := m.client.Current(ctx, sess)
	if err != nil {
		logger.Warn("failed to fetch open record", "error", err)
		current = nil
	}

	if err := m.database.ReplaceRecords(sess.User.ID, hist.Records, hist.Totals); err != nil {
		logger.Error("failed to cache records", "error", err)
	}

	snap := m.buildSnapshot(sess, hist.Records, hist.Totals, current, false)
	m.publish(snap)
	return snap, nil
}

// CachedSnapshot builds a snapshot from the local cache without touching
// the network.
func (m *Manager) CachedSnapshot() (Snapshot, error) {
	sess, err := m.requireSession()
	if err != nil {
		return Snapshot{}, err
	}
	records, err := m.database.Records(sess.User.ID)
	if err != nil {
		return Snapshot{}, err
	}
	state, ok, err := m.database.LastSync(sess.User.ID)
	if err != nil {
		return Snapshot{}, err
	}
	snap := m.buildSnapshot(sess, records, state.Totals, nil, true)
	if ok {
		snap.FetchedAt = state.SyncedAt
	}
	return snap, nil
}

// recompute republishes the current records, e.g. after a rate change.
func (m *Manager) recompute(sess models.Session) {
	prev := m.Snapshot()
	if prev.FetchedAt.IsZero() {
		return
	}
	m.publish(m.buildSnapshot(sess, prev.Records, prev.Totals, prev.Current, prev.Offline))
}

// checkShift notifies once per open record after ShiftReminder.
func (m *Manager) checkShift(snap Snapshot) {
	limit := m.cfg.ShiftReminder
	if snap.Current == nil || limit <= 0 {
		return
	}
	elapsed := snap.Current.Elapsed(m.now())
	if elapsed < int64(limit/time.Second) {
		return
	}

	m.mu.Lock()
	if m.reminded[snap.Current.ID] {
		m.mu.Unlock()
		return
	}
	m.reminded[snap.Current.ID] = true
	m.mu.Unlock()

	body := fmt.Sprintf("You have been clocked in for %s", tracking.FormatHHMMSS(elapsed))
	if err := m.notify("Shift reminder", body); err != nil {
		logger.Warn("failed to send notification", "error", err)
	}
	m.broadcast(ShiftReminderEvent{Record: *snap.Current, Elapsed: elapsed})
}

// CheckShift runs the shift reminder against the last snapshot. The clock
// tab calls it on its tick so the reminder does not wait for a poll.
func (m *Manager) CheckShift() {
	m.checkShift(m.Snapshot())
}

func (m *Manager) logAction(owner, recordID string, action models.ClockAction) {
	ev := &models.ClockEvent{Owner: owner, RecordID: recordID, Action: action, At: m.now()}
	if err := m.database.InsertClockEvent(ev); err != nil {
		logger.Error("failed to log clock event", "action", action, "error", err)
	}
}

// afterAction refreshes once a mutation went through. A failed refresh is
// logged; the mutation itself succeeded.
func (m *Manager) afterAction(ctx context.Context) {
	if _, err := m.Refresh(ctx); err != nil {
		logger.Warn("refresh after action failed", "error", err)
	}
}

// RecentActivity returns the latest clock actions taken from this machine.
func (m *Manager) RecentActivity(limit int) ([]models.ClockEvent, error) {
	sess, err := m.requireSession()
	if err != nil {
		return nil, err
	}
	return m.database.RecentClockEvents(sess.User.ID, limit)
}

// Login authenticates and stores the session.
func (m *Manager) Login(ctx context.Context, email, password string) (models.Session, error) {
	sess, err := m.client.Login(ctx, email, password)
	if err != nil {
		return models.Session{}, err
	}
	if err := m.sessions.Save(sess); err != nil {
		return models.Session{}, err
	}
	logger.Info("logged in", "user", sess.User.Email)
	return sess, nil
}

// Register creates an account and logs into it.
func (m *Manager) Register(ctx context.Context, req backend.RegisterRequest) (models.Session, error) {
	if err := m.client.Register(ctx, req); err != nil {
		return models.Session{}, err
	}
	return m.Login(ctx, req.Email, req.Password)
}

// RequestPasswordRecovery mails a reset code. No session is needed.
func (m *Manager) RequestPasswordRecovery(ctx context.Context, req backend.RecoveryRequest) error {
	if err := m.client.RequestPasswordRecovery(ctx, req); err != nil {
		return err
	}
	logger.Info("password recovery requested", "user", req.Email, "send_to", req.SendTo)
	return nil
}

// ResetPassword redeems a recovery code. A stored session of the same
// account is dropped so the next command asks for the new password.
func (m *Manager) ResetPassword(ctx context.Context, req backend.PasswordReset) error {
	if err := m.client.ResetPassword(ctx, req); err != nil {
		return err
	}
	logger.Info("password reset", "user", req.Email)
	if sess, ok := m.sessions.Get(); ok && strings.EqualFold(sess.User.Email, req.Email) {
		return m.Logout()
	}
	return nil
}

// Logout forgets the session and the cached records of its user.
func (m *Manager) Logout() error {
	if sess, ok := m.sessions.Get(); ok {
		if err := m.database.DeleteOwner(sess.User.ID); err != nil {
			logger.Error("failed to drop cached records", "error", err)
		}
	}
	return m.sessions.Clear()
}

// Current returns the open record, or nil.
func (m *Manager) Current(ctx context.Context) (*models.Fichaje, error) {
	sess, err := m.requireSession()
	if err != nil {
		return nil, err
	}
	return m.client.Current(ctx, sess)
}

// ClockIn opens a new record.
func (m *Manager) ClockIn(ctx context.Context) (models.Fichaje, error) {
	sess, err := m.requireSession()
	if err != nil {
		return models.Fichaje{}, err
	}
	open, err := m.client.Current(ctx, sess)
	if err != nil {
		return models.Fichaje{}, err
	}
	if open != nil {
		return *open, ErrAlreadyClockedIn
	}

	rec, err := m.client.ClockIn(ctx, sess)
	if err != nil {
		return models.Fichaje{}, err
	}
	if err := m.database.UpsertRecord(sess.User.ID, rec); err != nil {
		logger.Error("failed to cache record", "error", err)
	}
	m.logAction(sess.User.ID, rec.ID, models.ActionClockIn)
	logger.Info("clocked in", "record", rec.ID)

	m.afterAction(ctx)
	return rec, nil
}

// ClockOut closes the open record.
func (m *Manager) ClockOut(ctx context.Context) (models.Fichaje, error) {
	sess, err := m.requireSession()
	if err != nil {
		return models.Fichaje{}, err
	}
	open, err := m.client.Current(ctx, sess)
	if err != nil {
		return models.Fichaje{}, err
	}
	if open == nil {
		return models.Fichaje{}, ErrNoOpenRecord
	}

	rec, err := m.client.ClockOut(ctx, sess, open.ID)
	if err != nil {
		return models.Fichaje{}, err
	}
	if err := m.database.UpsertRecord(sess.User.ID, rec); err != nil {
		logger.Error("failed to cache record", "error", err)
	}
	m.logAction(sess.User.ID, rec.ID, models.ActionClockOut)
	logger.Info("clocked out", "record", rec.ID)

	m.mu.Lock()
	delete(m.reminded, rec.ID)
	m.mu.Unlock()

	m.afterAction(ctx)
	return rec, nil
}

// SetOvertime sets the overtime flag of a record.
func (m *Manager) SetOvertime(ctx context.Context, id string, extra bool) (models.Fichaje, error) {
	sess, err := m.requireSession()
	if err != nil {
		return models.Fichaje{}, err
	}
	rec, err := m.client.SetOvertime(ctx, sess, id, extra)
	if err != nil {
		return models.Fichaje{}, err
	}
	if err := m.database.UpsertRecord(sess.User.ID, rec); err != nil {
		logger.Error("failed to cache record", "error", err)
	}
	action := models.ActionOvertimeOff
	if extra {
		action = models.ActionOvertimeOn
	}
	m.logAction(sess.User.ID, id, action)

	m.afterAction(ctx)
	return rec, nil
}

// ToggleOvertime flips the overtime flag of a known record.
func (m *Manager) ToggleOvertime(ctx context.Context, id string) (models.Fichaje, error) {
	rec, ok := m.findRecord(id)
	if !ok {
		return models.Fichaje{}, fmt.Errorf("record %s: %w", id, backend.ErrNotFound)
	}
	return m.SetOvertime(ctx, id, !rec.Overtime)
}

func (m *Manager) findRecord(id string) (models.Fichaje, bool) {
	snap := m.Snapshot()
	if i := slices.IndexFunc(snap.Records, func(f models.Fichaje) bool { return f.ID == id }); i >= 0 {
		return snap.Records[i], true
	}
	sess, ok := m.Session()
	if !ok {
		return models.Fichaje{}, false
	}
	cached, err := m.database.Records(sess.User.ID)
	if err != nil {
		logger.Error("failed to read cached records", "error", err)
		return models.Fichaje{}, false
	}
	if i := slices.IndexFunc(cached, func(f models.Fichaje) bool { return f.ID == id }); i >= 0 {
		return cached[i], true
	}
	return models.Fichaje{}, false
}

// DeleteRecords removes the given records.
func (m *Manager) DeleteRecords(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	sess, err := m.requireSession()
	if err != nil {
		return err
	}
	if err := m.client.DeleteRecords(ctx, sess, ids); err != nil {
		return err
	}
	for _, id := range ids {
		if err := m.database.DeleteRecord(sess.User.ID, id); err != nil {
			logger.Error("failed to drop cached record", "record", id, "error", err)
		}
		m.logAction(sess.User.ID, id, models.ActionDelete)
	}

	m.afterAction(ctx)
	return nil
}

// DeleteHistory removes every record of the user.
func (m *Manager) DeleteHistory(ctx context.Context) error {
	sess, err := m.requireSession()
	if err != nil {
		return err
	}
	if err := m.client.DeleteHistory(ctx, sess); err != nil {
		return err
	}
	if err := m.database.DeleteOwner(sess.User.ID); err != nil {
		logger.Error("failed to drop cached records", "error", err)
	}
	m.logAction(sess.User.ID, "", models.ActionDeleteAll)

	m.afterAction(ctx)
	return nil
}

// Profile fetches the profile and keeps the stored session in sync.
func (m *Manager) Profile(ctx context.Context) (models.User, error) {
	sess, err := m.requireSession()
	if err != nil {
		return models.User{}, err
	}
	user, err := m.client.Profile(ctx, sess)
	if err != nil {
		return models.User{}, err
	}
	if !sameUser(user, sess.User) {
		next := sess.WithUser(user)
		if err := m.sessions.Save(next); err != nil {
			logger.Error("failed to store profile", "error", err)
		}
		m.recompute(next)
	}
	return user, nil
}

func sameUser(a, b models.User) bool {
	return a.ID == b.ID && a.Name == b.Name && a.Email == b.Email &&
		a.Photo == b.Photo && a.Currency == b.Currency &&
		a.HourlyRate.Equal(b.HourlyRate)
}

// UpdateProfile changes profile fields. A password change ends the session
// so the user has to log in again.
func (m *Manager) UpdateProfile(ctx context.Context, update backend.ProfileUpdate) (backend.ProfileResult, error) {
	sess, err := m.requireSession()
	if err != nil {
		return backend.ProfileResult{}, err
	}
	result, err := m.client.UpdateProfile(ctx, sess, update)
	if err != nil {
		return backend.ProfileResult{}, err
	}

	if result.PasswordChanged {
		logger.Info("password changed, logging out", "user", sess.User.Email)
		return result, m.Logout()
	}

	if err := m.sessions.Save(result.Session); err != nil {
		return result, err
	}
	m.recompute(result.Session)
	return result, nil
}

// DeleteAccount removes the user on the backend and forgets it locally.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	sess, err := m.requireSession()
	if err != nil {
		return err
	}
	if err := m.client.DeleteAccount(ctx, sess); err != nil {
		return err
	}
	logger.Info("account deleted", "user", sess.User.Email)
	return m.Logout()
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	var errs []error
	m.closeOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		if err := m.sessions.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
