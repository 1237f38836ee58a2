package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/fichaje-tui/internal/models"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "session.json")
	svc, err := New(path)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Logf("Close() failed: %v", err)
		}
	})
	return svc, path
}

func testSession() models.Session {
	return models.Session{
		Token:     "tok-1",
		User:      models.User{ID: "u1", Name: "Ana", Email: "ana@example.com"},
		ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// waitFor drains events until one of type want arrives.
func waitFor(t *testing.T, svc *Service, want EventType) Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-svc.Events():
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("timeout waiting for event %d", want)
			return Event{}
		}
	}
}

func TestNewWithoutFile(t *testing.T) {
	svc, path := newTestService(t)

	_, ok := svc.Get()
	assert.False(t, ok)
	assert.Equal(t, path, svc.Path())

	ev := waitFor(t, svc, EventLoaded)
	assert.Nil(t, ev.Session)
}

func TestNewRejectsEmptyPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestNewRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(path)
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	svc, path := newTestService(t)

	require.NoError(t, svc.Save(testSession()))

	got, ok := svc.Get()
	require.True(t, ok)
	assert.Equal(t, "tok-1", got.Token)
	assert.False(t, got.SavedAt.IsZero(), "SavedAt should be stamped")
	waitFor(t, svc, EventSaved)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := New(path)
	require.NoError(t, err)
	defer func() { _ = again.Close() }()

	reloaded, ok := again.Get()
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", reloaded.User.Email)
	assert.True(t, reloaded.ExpiresAt.Equal(testSession().ExpiresAt))
}

func TestClear(t *testing.T) {
	svc, path := newTestService(t)
	require.NoError(t, svc.Save(testSession()))
	require.NoError(t, svc.Clear())

	_, ok := svc.Get()
	assert.False(t, ok)
	waitFor(t, svc, EventCleared)

	again, err := New(path)
	require.NoError(t, err)
	defer func() { _ = again.Close() }()
	_, ok = again.Get()
	assert.False(t, ok)
}

func TestWatchExternalLogin(t *testing.T) {
	svc, path := newTestService(t)
	waitFor(t, svc, EventLoaded)

	other, err := New(path)
	require.NoError(t, err)
	defer func() { _ = other.Close() }()

	require.NoError(t, other.Save(testSession()))

	ev := waitFor(t, svc, EventChanged)
	require.NotNil(t, ev.Session)
	assert.Equal(t, "tok-1", ev.Session.Token)

	got, ok := svc.Get()
	require.True(t, ok)
	assert.Equal(t, "u1", got.User.ID)

	require.NoError(t, other.Clear())
	waitFor(t, svc, EventCleared)
	_, ok = svc.Get()
	assert.False(t, ok)
}

func TestParseFile(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantNil bool
		wantErr bool
	}{
		{"Empty", "", true, false},
		{"NullSession", `{"session":null,"version":1}`, true, false},
		{"NoToken", `{"session":{"token":"","user":{"id":"u1"}}}`, true, false},
		{"Valid", `{"session":{"token":"t","user":{"id":"u1"}}}`, false, false},
		{"Garbage", `[1,2`, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFile([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNil, got == nil)
		})
	}
}

func TestSendEventFull(t *testing.T) {
	svc, _ := newTestService(t)
	for range 150 {
		svc.sendEvent(Event{Type: EventSaved})
	}
	assert.Len(t, svc.eventChan, cap(svc.eventChan))
}

func TestCloseTwice(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.Close())
	assert.NoError(t, svc.Close())
}
