package model

import (
	"fmt"
	"strings"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/util"
)

// HasControlChars reports whether s contains a newline, NUL, or any other
// control character. Strings injected into the SSH argument vector must be
// free of these.
func HasControlChars(s string) bool {
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	return false
}

// Validate enforces every profile invariant: non-empty name/host/user, ports
// in range, at least one tunnel, key path present for key-file auth, positive
// keepalive settings, and no control characters in extra options. It runs on
// every create and on every load.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if strings.ContainsAny(p.Name, "/\\") || HasControlChars(p.Name) {
		return fmt.Errorf("profile name %q contains forbidden characters", p.Name)
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("profile %s: host cannot be empty", p.Name)
	}
	if err := util.ValidatePort(p.Port); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}
	if strings.TrimSpace(p.User) == "" {
		return fmt.Errorf("profile %s: user cannot be empty", p.Name)
	}
	switch p.Auth.Method {
	case AuthAgent, AuthPassword:
	case AuthKeyFile:
		// The key path may point at a removable medium, so existence is not
		// checked at save time. Only emptiness is rejected.
		if strings.TrimSpace(p.Auth.KeyPath) == "" {
			return fmt.Errorf("profile %s: key_file auth requires key_path", p.Name)
		}
	default:
		return fmt.Errorf("profile %s: unknown auth method %q", p.Name, p.Auth.Method)
	}
	if len(p.Tunnels) == 0 {
		return fmt.Errorf("profile %s: at least one tunnel is required", p.Name)
	}
	for i, t := range p.Tunnels {
		if err := util.ValidatePort(t.RemotePort); err != nil {
			return fmt.Errorf("profile %s: tunnel %d remote: %w", p.Name, i, err)
		}
		if err := util.ValidatePort(t.LocalPort); err != nil {
			return fmt.Errorf("profile %s: tunnel %d local: %w", p.Name, i, err)
		}
	}
	if p.KeepaliveIntervalSecs <= 0 {
		return fmt.Errorf("profile %s: keepalive_interval_secs must be positive", p.Name)
	}
	if p.KeepaliveCount <= 0 {
		return fmt.Errorf("profile %s: keepalive_count must be positive", p.Name)
	}
	if p.MaxReconnectAttempts < 0 {
		return fmt.Errorf("profile %s: max_reconnect_attempts cannot be negative", p.Name)
	}
	for k, v := range p.ExtraOptions {
		if HasControlChars(k) || HasControlChars(v) {
			return fmt.Errorf("profile %s: extra option %q contains forbidden characters", p.Name, k)
		}
	}
	return nil
}
