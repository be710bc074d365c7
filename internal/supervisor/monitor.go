package supervisor

import (
	"bufio"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/backoff"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/sshclient"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/util"
)

// authFatalPatterns mark an exit as non-retriable: reconnecting cannot fix a
// rejected credential or an untrusted host key, and hammering the server
// invites lockouts.
var authFatalPatterns = []string{
	"Permission denied",
	"Host key verification failed",
	"no matching host key",
}

// earlyFailPatterns suppress the elapsed-time readiness heuristic: a child
// that printed one of these within the readiness window is on its way down
// even if it has not exited yet.
var earlyFailPatterns = []string{
	"fatal",
	"Permission denied",
	"Connection refused",
}

// readyPatterns are positive connection indicators on stderr. OpenSSH in -N
// mode is quiet on success unless verbose, so these only fire when the
// server or a -v flag produces them; the elapsed-time heuristic covers the
// silent case.
var readyPatterns = []string{
	"Authenticated to",
	"Entering interactive session",
	"Remote connections from",
}

type monitorOutcome int

const (
	// outcomeStopped: cancellation was signaled; child terminated.
	outcomeStopped monitorOutcome = iota
	// outcomeFatal: child exited after an auth-fatal diagnostic.
	outcomeFatal
	// outcomeExited: child exited; eligible for reconnect.
	outcomeExited
)

type monitorResult struct {
	outcome monitorOutcome
	reason  string
}

// runSession is the per-session supervisor task: spawn, detect readiness,
// pump stderr, reconnect with backoff, honor cancellation. It is the only
// writer of this session's events, which makes per-session event order
// strict. It never holds the registry mutex across a child wait.
func (m *Manager) runSession(ctx context.Context, s *Session, sshPath string, args []string, password string) {
	defer m.remove(s)

	attempt := 0
	for {
		proc, err := m.starter.StartTunnel(sshPath, args, password)
		if err != nil {
			slog.Warn("spawn failed", "profile", s.Profile.Name, "error", err)
			m.update(s, func(s *Session) { s.LastError = err.Error() })
			if ctx.Err() != nil {
				m.finishStopped(s)
				return
			}
			if !s.Profile.AutoReconnect {
				m.finishFailed(s, err.Error())
				return
			}
			if !m.delayReconnect(ctx, s, &attempt) {
				return
			}
			continue
		}

		m.update(s, func(s *Session) {
			s.Status = model.StatusStarting
			s.PID = proc.PID()
		})

		res := m.monitor(ctx, s, proc, attempt > 0)

		m.update(s, func(s *Session) { s.PID = 0 })

		switch res.outcome {
		case outcomeStopped:
			m.finishStopped(s)
			return
		case outcomeFatal:
			m.finishFailed(s, res.reason)
			return
		case outcomeExited:
			m.update(s, func(s *Session) {
				s.Status = model.StatusDisconnected
				s.LastError = res.reason
			})
			m.publish(model.Event{
				Type:        model.EventSessionDisconnected,
				SessionID:   s.ID,
				ProfileName: s.Profile.Name,
				Reason:      res.reason,
			})
			if !s.Profile.AutoReconnect {
				m.finishFailed(s, res.reason)
				return
			}
			if !m.delayReconnect(ctx, s, &attempt) {
				return
			}
		}
	}
}

// monitor watches one spawned child until it exits or cancellation fires.
// respawn tells it whether a transition to Connected counts toward
// reconnect_count (the first spawn does not).
func (m *Manager) monitor(ctx context.Context, s *Session, proc *sshclient.Process, respawn bool) monitorResult {
	lines := make(chan string, 64)
	waitErr := make(chan error, 1)

	// Pump stderr to EOF, then reap. Wait must not run before the pipe is
	// fully drained, so both live on the same goroutine.
	go func() {
		sc := bufio.NewScanner(proc.Stderr)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
		waitErr <- proc.Cmd.Wait()
	}()

	connected := false
	earlyFail := false
	nonRetriable := false
	ready := time.NewTimer(util.ReadinessTimeout)
	defer ready.Stop()

	for {
		select {
		case <-ctx.Done():
			m.terminate(proc)
			// The child is dying; keep emitting its last words while the
			// pipe drains.
			for line := range lines {
				m.publishOutput(s, line)
			}
			<-waitErr
			return monitorResult{outcome: outcomeStopped}

		case line, ok := <-lines:
			if !ok {
				err := <-waitErr
				reason := "exited cleanly"
				if err != nil {
					reason = err.Error()
				}
				if nonRetriable {
					m.mu.Lock()
					reason = s.LastError
					m.mu.Unlock()
					return monitorResult{outcome: outcomeFatal, reason: reason}
				}
				return monitorResult{outcome: outcomeExited, reason: reason}
			}
			m.publishOutput(s, line)
			if matchesAny(line, authFatalPatterns) {
				nonRetriable = true
				m.update(s, func(s *Session) { s.LastError = line })
			}
			if matchesAny(line, earlyFailPatterns) {
				earlyFail = true
			}
			if !connected && matchesAny(line, readyPatterns) {
				connected = true
				m.markConnected(s, respawn)
			}

		case <-ready.C:
			// Still alive with no fatal diagnostics for the whole window:
			// treat as connected.
			if !connected && !earlyFail {
				connected = true
				m.markConnected(s, respawn)
			}
		}
	}
}

// delayReconnect advances the attempt counter, enforces the attempt cap, and
// sleeps the backoff delay. Returns false when the session is finished
// (cancelled during sleep, or attempts exhausted).
func (m *Manager) delayReconnect(ctx context.Context, s *Session, attempt *int) bool {
	if ctx.Err() != nil {
		m.finishStopped(s)
		return false
	}
	*attempt++
	if limit := s.Profile.MaxReconnectAttempts; limit > 0 && *attempt > limit {
		m.finishFailed(s, "max reconnect attempts exceeded")
		return false
	}

	delay := backoff.Delay(*attempt)
	m.update(s, func(s *Session) { s.Status = model.StatusReconnecting })
	m.publish(model.Event{
		Type:        model.EventSessionReconnecting,
		SessionID:   s.ID,
		ProfileName: s.Profile.Name,
		Attempt:     *attempt,
		DelaySecs:   int(delay.Seconds()),
	})

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		m.finishStopped(s)
		return false
	case <-timer.C:
		return true
	}
}

// terminate implements the termination protocol: graceful signal first, then
// a force-kill after the grace window. The monitor's pump goroutine observes
// the resulting exit; termination never blocks on it here.
func (m *Manager) terminate(proc *sshclient.Process) {
	p := proc.Cmd.Process
	if p == nil {
		return
	}
	if err := sshclient.Terminate(p); err != nil {
		_ = p.Kill()
		return
	}
	go func() {
		time.Sleep(util.TerminateGrace)
		// No-op if the child already exited.
		_ = p.Kill()
	}()
}

func (m *Manager) markConnected(s *Session, respawn bool) {
	m.update(s, func(s *Session) {
		s.Status = model.StatusConnected
		if respawn {
			s.ReconnectCount++
		}
	})
	m.publish(model.Event{
		Type:        model.EventSessionConnected,
		SessionID:   s.ID,
		ProfileName: s.Profile.Name,
	})
}

func (m *Manager) publishOutput(s *Session, line string) {
	m.publish(model.Event{
		Type:        model.EventSessionOutput,
		SessionID:   s.ID,
		ProfileName: s.Profile.Name,
		Line:        line,
	})
}

func (m *Manager) finishStopped(s *Session) {
	m.update(s, func(s *Session) {
		s.Status = model.StatusStopped
		s.PID = 0
	})
	m.publish(model.Event{
		Type:        model.EventSessionStopped,
		SessionID:   s.ID,
		ProfileName: s.Profile.Name,
	})
}

func (m *Manager) finishFailed(s *Session, errMsg string) {
	m.update(s, func(s *Session) {
		s.Status = model.StatusFailed
		s.PID = 0
		s.LastError = errMsg
	})
	m.publish(model.Event{
		Type:        model.EventSessionFailed,
		SessionID:   s.ID,
		ProfileName: s.Profile.Name,
		Error:       errMsg,
	})
}

func matchesAny(line string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}
