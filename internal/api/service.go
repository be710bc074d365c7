// Package api is the operation surface the supervisor and profile store
// expose to adapters (CLI, HTTP/WebSocket, TUI). Adapters are thin: they
// translate their own wire formats to these calls and render the event
// stream; they never reach into the supervisor's internals.
package api

import (
	"github.com/reverse-ssh/reverse-ssh-interface/internal/bus"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/profile"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/supervisor"
)

// Service bundles the profile store and session manager behind one surface.
type Service struct {
	profiles *profile.Store
	sessions *supervisor.Manager
}

// New creates a service over the given store and manager.
func New(profiles *profile.Store, sessions *supervisor.Manager) *Service {
	return &Service{profiles: profiles, sessions: sessions}
}

func (s *Service) ListProfiles() ([]model.Profile, error) {
	return s.profiles.List()
}

func (s *Service) GetProfile(name string) (model.Profile, error) {
	return s.profiles.Get(name)
}

func (s *Service) CreateProfile(p model.Profile) (model.Profile, error) {
	return s.profiles.Create(p)
}

func (s *Service) DeleteProfile(name string) error {
	return s.profiles.Delete(name)
}

func (s *Service) StartSession(profileName string) (string, error) {
	return s.sessions.StartSession(profileName)
}

func (s *Service) StartSessionWithPassword(profileName, password string) (string, error) {
	return s.sessions.StartSessionWithPassword(profileName, password)
}

func (s *Service) StopSession(id string) error {
	return s.sessions.StopSession(id)
}

func (s *Service) StopAllSessions() int {
	return s.sessions.StopAll()
}

func (s *Service) ListSessions() []model.SessionInfo {
	return s.sessions.ListSessions()
}

func (s *Service) GetSession(id string) (model.SessionInfo, error) {
	return s.sessions.GetSession(id)
}

// SubscribeEvents returns a live event stream handle. The caller must Close
// it; a slow consumer loses oldest events rather than backpressuring
// supervisors.
func (s *Service) SubscribeEvents() *bus.Subscriber {
	return s.sessions.Subscribe()
}

// Close stops all sessions and waits for their supervisor tasks.
func (s *Service) Close() {
	s.sessions.Close()
}
