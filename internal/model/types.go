package model

import (
	"fmt"
	"time"
)

// AuthMethod selects how the SSH client authenticates.
type AuthMethod string

const (
	AuthAgent    AuthMethod = "agent"
	AuthKeyFile  AuthMethod = "key_file"
	AuthPassword AuthMethod = "password"
)

// Auth is the authentication settings for a profile. KeyPath is only
// meaningful when Method is AuthKeyFile.
type Auth struct {
	Method  AuthMethod `yaml:"method" json:"method"`
	KeyPath string     `yaml:"key_path,omitempty" json:"key_path,omitempty"`
}

// Tunnel defines one reverse port forward (-R): a port opened on the SSH
// server that forwards back to a destination reachable from this machine.
type Tunnel struct {
	RemoteBind string `yaml:"remote_bind,omitempty" json:"remote_bind,omitempty"`
	RemotePort int    `yaml:"remote_port" json:"remote_port"`
	LocalHost  string `yaml:"local_host,omitempty" json:"local_host,omitempty"`
	LocalPort  int    `yaml:"local_port" json:"local_port"`
}

// ForwardArg formats the tunnel as an ssh -R argument:
// bind_address:port:host:hostport. Empty addresses default to "localhost",
// matching OpenSSH behavior for omitted bind addresses.
func (t Tunnel) ForwardArg() string {
	return fmt.Sprintf("%s:%d:%s:%d", defaultAddr(t.RemoteBind), t.RemotePort, defaultAddr(t.LocalHost), t.LocalPort)
}

// Profile is a named, persisted configuration describing how to start a
// reverse tunnel session. One profile per file under <config>/profiles/.
type Profile struct {
	Name                  string            `yaml:"name" json:"name"`
	Host                  string            `yaml:"host" json:"host"`
	Port                  int               `yaml:"port" json:"port"`
	User                  string            `yaml:"user" json:"user"`
	Auth                  Auth              `yaml:"auth" json:"auth"`
	Tunnels               []Tunnel          `yaml:"tunnels" json:"tunnels"`
	KeepaliveIntervalSecs int               `yaml:"keepalive_interval_secs" json:"keepalive_interval_secs"`
	KeepaliveCount        int               `yaml:"keepalive_count" json:"keepalive_count"`
	AutoReconnect         bool              `yaml:"auto_reconnect" json:"auto_reconnect"`
	MaxReconnectAttempts  int               `yaml:"max_reconnect_attempts" json:"max_reconnect_attempts"`
	ExtraOptions          map[string]string `yaml:"extra_options,omitempty" json:"extra_options,omitempty"`
}

// DefaultProfile returns a profile pre-filled with defaults. File loading
// unmarshals content over this value, so absent fields keep their defaults.
func DefaultProfile() Profile {
	return Profile{
		Port:                  22,
		Auth:                  Auth{Method: AuthAgent},
		KeepaliveIntervalSecs: 20,
		KeepaliveCount:        3,
		AutoReconnect:         true,
	}
}

// Destination returns the user@host SSH destination string.
func (p Profile) Destination() string {
	return p.User + "@" + p.Host
}

// SessionStatus is the observable state of a supervised session.
type SessionStatus string

const (
	StatusStarting     SessionStatus = "starting"
	StatusConnected    SessionStatus = "connected"
	StatusReconnecting SessionStatus = "reconnecting"
	StatusDisconnected SessionStatus = "disconnected"
	StatusFailed       SessionStatus = "failed"
	StatusStopped      SessionStatus = "stopped"
)

// SessionInfo is a point-in-time copy of a session's observable fields, as
// returned by the list/get operations. Sessions live only in memory; they are
// never persisted across restarts.
type SessionInfo struct {
	ID             string        `json:"id"`
	ProfileName    string        `json:"profile_name"`
	Status         SessionStatus `json:"status"`
	PID            int           `json:"pid,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	ReconnectCount int           `json:"reconnect_count"`
	LastError      string        `json:"last_error,omitempty"`
}

func defaultAddr(s string) string {
	if s == "" {
		return "localhost"
	}
	return s
}
