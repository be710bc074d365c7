// Package supervisor owns the live session registry: it spawns SSH children
// for profiles, monitors them, reconnects with exponential backoff, and
// broadcasts lifecycle events on the bus.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/appconfig"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/bus"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/knownhosts"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/profile"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/sshbin"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/sshclient"
)

// ErrSessionNotFound is returned when the session id is not in the registry.
var ErrSessionNotFound = errors.New("session not found")

// TunnelStarter abstracts SSH tunnel process creation for testing.
type TunnelStarter interface {
	StartTunnel(sshPath string, args []string, password string) (*sshclient.Process, error)
}

// Manager coordinates all sessions. One supervisor task runs per session;
// tasks communicate with the manager only via the registry (mutex held
// briefly), the event bus (fire-and-forget), and their cancel signal.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	store    *profile.Store
	detector *sshbin.Detector
	starter  TunnelStarter
	cfg      appconfig.Config
	events   *bus.Bus
}

// New creates a manager. starter is normally sshclient.New(); tests inject a
// fake that launches a stand-in process.
func New(store *profile.Store, cfg appconfig.Config, starter TunnelStarter) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		detector: sshbin.NewDetector(cfg.SSH.BinaryPath),
		starter:  starter,
		cfg:      cfg,
		events:   bus.New(0),
	}
}

// Subscribe registers a new event bus subscriber.
func (m *Manager) Subscribe() *bus.Subscriber {
	return m.events.Subscribe()
}

// StartSession loads and snapshots the named profile, resolves the SSH
// binary, builds the argument vector, registers a session, and hands off to
// an independent supervisor task. The id returns synchronously; any failure
// after hand-off is reported on the event bus, never as an error here.
func (m *Manager) StartSession(profileName string) (string, error) {
	return m.StartSessionWithPassword(profileName, "")
}

// StartSessionWithPassword is StartSession for password-auth profiles. The
// password is kept in memory for the session's lifetime and handed to each
// spawned child via its environment; it is never persisted or logged.
func (m *Manager) StartSessionWithPassword(profileName, password string) (string, error) {
	p, err := m.store.Get(profileName)
	if err != nil {
		return "", err
	}

	info, err := m.detector.Detect()
	if err != nil {
		return "", err
	}

	khPath, err := knownhosts.Resolve(m.cfg.SSH.UseAppKnownHosts)
	if err != nil {
		return "", fmt.Errorf("resolve known_hosts: %w", err)
	}

	args, err := sshclient.BuildTunnelArgs(sshclient.BuildInput{
		Profile:               p,
		KnownHostsPath:        khPath,
		StrictHostKeyChecking: m.cfg.SSH.StrictHostKeyOption(),
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        uuid.NewString(),
		Profile:   p,
		Status:    model.StatusStarting,
		StartedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.publish(model.Event{
		Type:        model.EventSessionStarted,
		SessionID:   s.ID,
		ProfileName: p.Name,
	})

	go m.runSession(ctx, s, info.Path, args, password)
	return s.ID, nil
}

// StopSession signals the session's cancel handle. It does not wait for the
// child to exit; the supervisor task terminates the child, emits
// SessionStopped, and removes the session from the registry.
func (m *Manager) StopSession(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.cancel()
	return nil
}

// StopAll signals every live session and returns the count signaled. It does
// not block on child death; AllSessionsStopped is emitted asynchronously
// after every per-session SessionStopped.
func (m *Manager) StopAll() int {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		s.cancel()
	}
	go func() {
		for _, s := range live {
			<-s.done
		}
		m.publish(model.Event{Type: model.EventAllSessionsStopped})
	}()
	return len(live)
}

// ListSessions returns a coherent point-in-time snapshot of every session,
// ordered by start time ascending.
func (m *Manager) ListSessions() []model.SessionInfo {
	m.mu.Lock()
	out := make([]model.SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.info())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GetSession returns a snapshot of one session.
func (m *Manager) GetSession(id string) (model.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return model.SessionInfo{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s.info(), nil
}

// Close stops every session, waits for their tasks to finish, and shuts the
// event bus down.
func (m *Manager) Close() {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		s.cancel()
	}
	for _, s := range live {
		<-s.done
	}
	m.events.Close()
}

func (m *Manager) publish(evt model.Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	m.events.Publish(evt)
}

// update mutates session fields under the registry mutex. fn must be quick
// and must not block.
func (m *Manager) update(s *Session, fn func(*Session)) {
	m.mu.Lock()
	fn(s)
	m.mu.Unlock()
}

// remove deletes the session from the registry and releases waiters.
func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()
	close(s.done)
	slog.Debug("session reaped", "session", s.ID, "profile", s.Profile.Name)
}
