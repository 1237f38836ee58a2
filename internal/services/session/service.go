// Package session persists the logged-in session with file watching, so a
// login from one terminal reaches every running client.
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/fichaje-tui/internal/logger"
	"github.com/j-veylop/fichaje-tui/internal/models"
)

// File represents the JSON file structure for session storage.
type File struct {
	Session *models.Session `json:"session"`
	Version int             `json:"version,omitempty"`
}

// Event represents a session store event.
type Event struct {
	Error   error
	Session *models.Session
	Type    EventType
}

// EventType defines the type of session event.
type EventType int

const (
	// EventLoaded is sent once the store has read the file at startup.
	EventLoaded EventType = iota
	// EventSaved is sent after Save.
	EventSaved
	// EventCleared is sent after Clear or when the file is emptied.
	EventCleared
	// EventChanged is sent when another process rewrote the file.
	EventChanged
	// EventError reports watcher or reload failures.
	EventError
)

// Service keeps the current session in memory and on disk.
type Service struct {
	current       *models.Session
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
	filePath      string
	// lastWritten lets the watcher ignore our own writes.
	lastWritten []byte
	mu          sync.RWMutex
	closeOnce   sync.Once
}

// New creates a session store backed by filePath and starts watching it.
func New(filePath string) (*Service, error) {
	if filePath == "" {
		return nil, errors.New("session file path is empty")
	}

	s := &Service{
		filePath:  filePath,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	s.sendEvent(Event{Type: EventLoaded, Session: s.snapshot()})
	return s, nil
}

// Path returns the session file path.
func (s *Service) Path() string {
	return s.filePath
}

// Events returns the event channel for subscribing to session changes.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Get returns the stored session, if any.
func (s *Service) Get() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.Session{}, false
	}
	return *s.current, true
}

// Save stores a session, replacing the previous one.
func (s *Service) Save(sess models.Session) error {
	if sess.SavedAt.IsZero() {
		sess.SavedAt = time.Now()
	}

	s.mu.Lock()
	prev := s.current
	s.current = &sess
	if err := s.saveLocked(); err != nil {
		s.current = prev
		s.mu.Unlock()
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventSaved, Session: &sess})
	return nil
}

// Clear forgets the stored session.
func (s *Service) Clear() error {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	if err := s.saveLocked(); err != nil {
		s.current = prev
		s.mu.Unlock()
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventCleared})
	return nil
}

// Load rereads the session file, discarding the in-memory copy.
func (s *Service) Load() error {
	if err := s.load(); err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.current = nil
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}
	return nil
}

func (s *Service) snapshot() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func parseFile(data []byte) (*models.Session, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if f.Session == nil || f.Session.Token == "" {
		return nil, nil
	}
	return f.Session, nil
}

// load reads the session file.
func (s *Service) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}
	sess, err := parseFile(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = sess
	s.lastWritten = data
	s.mu.Unlock()
	return nil
}

// saveLocked writes the session file (must hold lock).
func (s *Service) saveLocked() error {
	data, err := json.MarshalIndent(File{Session: s.current, Version: 1}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write to temp file first, then rename
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.lastWritten = data
	return nil
}

// startWatcher starts the file system watcher.
func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory (to catch file creation/deletion)
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (s *Service) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.mu.Lock()
				if s.debounceTimer != nil {
					s.debounceTimer.Stop()
				}
				s.debounceTimer = time.AfterFunc(debounceInterval, s.handleFileChange)
				s.mu.Unlock()
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// handleFileChange reloads the session after an external change.
func (s *Service) handleFileChange() {
	data, err := os.ReadFile(s.filePath)
	if err != nil && !os.IsNotExist(err) {
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}

	s.mu.Lock()
	if bytes.Equal(data, s.lastWritten) {
		s.mu.Unlock()
		return
	}
	sess, parseErr := parseFile(data)
	if parseErr != nil {
		s.mu.Unlock()
		s.sendEvent(Event{Type: EventError, Error: parseErr})
		return
	}
	s.current = sess
	s.lastWritten = data
	s.mu.Unlock()

	if sess == nil {
		s.sendEvent(Event{Type: EventCleared})
		return
	}
	cp := *sess
	s.sendEvent(Event{Type: EventChanged, Session: &cp})
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and cleans up resources.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)

		s.mu.Lock()
		if s.debounceTimer != nil {
			s.debounceTimer.Stop()
		}
		s.mu.Unlock()

		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}
