package supervisor

import (
	"context"
	"time"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
)

// Session is one supervised tunnel: an immutable profile snapshot plus the
// mutable runtime state its supervisor task maintains. All mutable fields
// are guarded by the Manager's registry mutex; the supervisor task updates
// them through Manager helpers that take the lock briefly and never across a
// process wait.
type Session struct {
	ID string
	// Profile is the profile as it was at start time. Later edits or
	// deletions of the stored profile do not affect a running session.
	Profile model.Profile

	Status         model.SessionStatus
	PID            int
	StartedAt      time.Time
	ReconnectCount int
	LastError      string

	// cancel is the one-shot stop signal consumed by the supervisor task.
	cancel context.CancelFunc
	// done is closed when the supervisor task has fully finished (child
	// reaped, terminal event emitted, session removed from the registry).
	done chan struct{}
}

// info copies the observable fields. Caller holds the registry mutex.
func (s *Session) info() model.SessionInfo {
	return model.SessionInfo{
		ID:             s.ID,
		ProfileName:    s.Profile.Name,
		Status:         s.Status,
		PID:            s.PID,
		StartedAt:      s.StartedAt,
		ReconnectCount: s.ReconnectCount,
		LastError:      s.LastError,
	}
}
