// Package ui is the terminal dashboard: profiles on the left, live sessions
// on the right, fed by the supervisor's event bus.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/api"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/appconfig"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/bus"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/logging"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/util"
)

type (
	tickMsg  time.Time
	eventMsg model.Event
	// busClosedMsg arrives when the event subscription ends.
	busClosedMsg struct{}
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	dimStyle      = lipgloss.NewStyle().Faint(true)
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

type dashboard struct {
	svc *api.Service
	sub *bus.Subscriber

	profiles []model.Profile
	filtered []model.Profile
	sessions []model.SessionInfo
	recent   []model.Event

	sel        int
	filter     textinput.Model
	filterMode bool
	status     string
	width      int
	height     int
}

func newDashboard(svc *api.Service) dashboard {
	filter := textinput.New()
	filter.Placeholder = "filter profiles"
	filter.CharLimit = 64

	d := dashboard{svc: svc, sub: svc.SubscribeEvents(), filter: filter}
	d.reload()
	d.status = "Enter: start session for profile · x: stop selected session · q: quit"
	return d
}

func (d *dashboard) reload() {
	profiles, err := d.svc.ListProfiles()
	if err != nil {
		d.status = "profile load error: " + err.Error()
		return
	}
	d.profiles = profiles
	d.applyFilter()
	d.sessions = d.svc.ListSessions()
}

func (d *dashboard) applyFilter() {
	f := strings.ToLower(strings.TrimSpace(d.filter.Value()))
	if f == "" {
		d.filtered = append([]model.Profile(nil), d.profiles...)
	} else {
		d.filtered = nil
		for _, p := range d.profiles {
			if strings.Contains(strings.ToLower(p.Name), f) || strings.Contains(strings.ToLower(p.Host), f) {
				d.filtered = append(d.filtered, p)
			}
		}
	}
	if d.sel >= len(d.filtered) {
		d.sel = len(d.filtered) - 1
	}
	if d.sel < 0 {
		d.sel = 0
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// waitEvent blocks on the bus subscription and turns each event into a
// bubbletea message. Re-issued after every delivery.
func waitEvent(sub *bus.Subscriber) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-sub.Events()
		if !ok {
			return busClosedMsg{}
		}
		return eventMsg(evt)
	}
}

func (d dashboard) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitEvent(d.sub))
}

func (d dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		d.sessions = d.svc.ListSessions()
		return d, tickCmd()

	case eventMsg:
		d.recent = append(d.recent, model.Event(msg))
		if len(d.recent) > 50 {
			d.recent = d.recent[len(d.recent)-50:]
		}
		d.sessions = d.svc.ListSessions()
		return d, waitEvent(d.sub)

	case busClosedMsg:
		return d, tea.Quit

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case tea.KeyMsg:
		if d.filterMode {
			switch msg.String() {
			case "enter", "esc":
				d.filterMode = false
				d.filter.Blur()
			default:
				var cmd tea.Cmd
				d.filter, cmd = d.filter.Update(msg)
				d.applyFilter()
				return d, cmd
			}
			d.applyFilter()
			return d, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			d.svc.StopAllSessions()
			return d, tea.Quit
		case "/":
			d.filterMode = true
			d.filter.Focus()
			return d, nil
		case "j", "down":
			if d.sel < len(d.filtered)-1 {
				d.sel++
			}
		case "k", "up":
			if d.sel > 0 {
				d.sel--
			}
		case "r":
			d.reload()
		case "enter":
			if d.sel < len(d.filtered) {
				p := d.filtered[d.sel]
				if p.Auth.Method == model.AuthPassword {
					d.status = "password profiles start via: revssh up " + p.Name + " --password-env ..."
					return d, nil
				}
				if _, err := d.svc.StartSession(p.Name); err != nil {
					d.status = "start failed: " + logging.Redact(err.Error())
				} else {
					d.status = "starting session for " + p.Name
				}
			}
		case "x":
			// Stop the most recent session of the selected profile.
			if d.sel < len(d.filtered) {
				name := d.filtered[d.sel].Name
				stopped := false
				for i := len(d.sessions) - 1; i >= 0; i-- {
					if d.sessions[i].ProfileName == name {
						if err := d.svc.StopSession(d.sessions[i].ID); err == nil {
							d.status = "stop signaled for " + name
							stopped = true
						}
						break
					}
				}
				if !stopped {
					d.status = "no live session for " + name
				}
			}
		case "X":
			n := d.svc.StopAllSessions()
			d.status = fmt.Sprintf("signaled %d session(s)", n)
		}
	}
	return d, nil
}

func (d dashboard) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("reverse-ssh-interface"))
	b.WriteString("\n\n")

	if d.filterMode || d.filter.Value() != "" {
		b.WriteString("/" + d.filter.View() + "\n")
	}

	b.WriteString(titleStyle.Render("PROFILES") + "\n")
	if len(d.filtered) == 0 {
		b.WriteString(dimStyle.Render("  (none — create one with `revssh profile create`)") + "\n")
	}
	for i, p := range d.filtered {
		line := fmt.Sprintf("  %-20s %-28s tunnels:%d", p.Name, p.Destination(), len(p.Tunnels))
		if i == d.sel && !d.filterMode {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("SESSIONS") + "\n")
	if len(d.sessions) == 0 {
		b.WriteString(dimStyle.Render("  (none)") + "\n")
	}
	for _, s := range d.sessions {
		status := string(s.Status)
		switch s.Status {
		case model.StatusConnected:
			status = okStyle.Render(status)
		case model.StatusFailed, model.StatusDisconnected:
			status = errStyle.Render(status)
		}
		b.WriteString(fmt.Sprintf("  %-8s %-20s %-22s pid:%-7d re:%d %s\n",
			s.ID[:minInt(8, len(s.ID))], s.ProfileName, status, s.PID, s.ReconnectCount,
			dimStyle.Render(util.EmptyDash(logging.Redact(s.LastError)))))
	}

	b.WriteString("\n" + titleStyle.Render("EVENTS") + "\n")
	start := len(d.recent) - 6
	if start < 0 {
		start = 0
	}
	for _, evt := range d.recent[start:] {
		b.WriteString(dimStyle.Render("  "+renderEvent(evt)) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render(d.status) + "\n")
	return b.String()
}

func renderEvent(evt model.Event) string {
	ts := evt.Timestamp.Local().Format("15:04:05")
	switch evt.Type {
	case model.EventSessionStarted:
		return fmt.Sprintf("%s %s started", ts, evt.ProfileName)
	case model.EventSessionConnected:
		return fmt.Sprintf("%s %s connected", ts, evt.ProfileName)
	case model.EventSessionDisconnected:
		return fmt.Sprintf("%s %s disconnected: %s", ts, evt.ProfileName, evt.Reason)
	case model.EventSessionReconnecting:
		return fmt.Sprintf("%s %s reconnecting (attempt %d, %ds)", ts, evt.ProfileName, evt.Attempt, evt.DelaySecs)
	case model.EventSessionFailed:
		return fmt.Sprintf("%s %s failed: %s", ts, evt.ProfileName, evt.Error)
	case model.EventSessionStopped:
		return fmt.Sprintf("%s %s stopped", ts, evt.ProfileName)
	case model.EventSessionOutput:
		return fmt.Sprintf("%s %s ssh: %s", ts, evt.ProfileName, evt.Line)
	case model.EventAllSessionsStopped:
		return ts + " all sessions stopped"
	}
	return ts + " " + string(evt.Type)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Run starts the dashboard and blocks until the user quits. Quitting stops
// all sessions — they live only as long as this process.
func Run(svc *api.Service, cfg appconfig.Config) error {
	d := newDashboard(svc)
	defer d.sub.Close()

	if cfg.General.AutoStartSessions {
		for _, p := range d.profiles {
			if p.Auth.Method == model.AuthPassword {
				continue
			}
			_, _ = svc.StartSession(p.Name)
		}
	}

	_, err := tea.NewProgram(d, tea.WithAltScreen()).Run()
	svc.Close()
	return err
}
