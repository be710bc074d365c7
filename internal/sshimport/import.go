// Package sshimport converts hosts from the user's ~/.ssh/config into
// connection profiles. Only hosts that declare at least one RemoteForward
// become profiles — a profile without a tunnel is invalid by definition.
package sshimport

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
)

// Result reports what an import pass produced.
type Result struct {
	Profiles []model.Profile
	// Skipped maps host alias to the reason it was not importable.
	Skipped map[string]string
}

// FromDefaultConfig imports from ~/.ssh/config.
func FromDefaultConfig() (Result, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Result{}, fmt.Errorf("resolve home: %w", err)
	}
	return FromFile(filepath.Join(home, ".ssh", "config"))
}

// FromFile parses the given OpenSSH client config and converts each
// non-wildcard Host block with RemoteForward directives into a profile.
func FromFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", path, err)
	}

	res := Result{Skipped: map[string]string{}}
	for _, host := range cfg.Hosts {
		alias := concreteAlias(host)
		if alias == "" {
			continue
		}
		p, reason := hostToProfile(cfg, alias)
		if reason != "" {
			res.Skipped[alias] = reason
			continue
		}
		res.Profiles = append(res.Profiles, p)
	}
	return res, nil
}

// concreteAlias returns the first pattern without wildcards, or "".
func concreteAlias(host *ssh_config.Host) string {
	for _, pat := range host.Patterns {
		s := pat.String()
		if !strings.ContainsAny(s, "*?!") {
			return s
		}
	}
	return ""
}

func hostToProfile(cfg *ssh_config.Config, alias string) (model.Profile, string) {
	forwards, _ := cfg.GetAll(alias, "RemoteForward")
	if len(forwards) == 0 {
		return model.Profile{}, "no RemoteForward directives"
	}

	p := model.DefaultProfile()
	p.Name = alias
	p.Host = alias
	if hn, _ := cfg.Get(alias, "HostName"); hn != "" {
		p.Host = hn
	}
	if user, _ := cfg.Get(alias, "User"); user != "" {
		p.User = user
	} else {
		return model.Profile{}, "no User directive"
	}
	if port, _ := cfg.Get(alias, "Port"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return model.Profile{}, "invalid Port: " + port
		}
		p.Port = n
	}
	if identity, _ := cfg.Get(alias, "IdentityFile"); identity != "" && identity != ssh_config.Default("IdentityFile") {
		p.Auth = model.Auth{Method: model.AuthKeyFile, KeyPath: expandHome(identity)}
	}

	for _, fwd := range forwards {
		t, err := parseRemoteForward(fwd)
		if err != nil {
			return model.Profile{}, err.Error()
		}
		p.Tunnels = append(p.Tunnels, t)
	}

	if err := p.Validate(); err != nil {
		return model.Profile{}, err.Error()
	}
	return p, ""
}

// parseRemoteForward parses an OpenSSH RemoteForward value:
// "[bind_address:]port host:hostport".
func parseRemoteForward(s string) (model.Tunnel, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return model.Tunnel{}, fmt.Errorf("malformed RemoteForward %q", s)
	}

	var t model.Tunnel
	listen := fields[0]
	if idx := strings.LastIndex(listen, ":"); idx >= 0 {
		t.RemoteBind = listen[:idx]
		listen = listen[idx+1:]
	}
	rp, err := strconv.Atoi(listen)
	if err != nil {
		return model.Tunnel{}, fmt.Errorf("malformed RemoteForward port in %q", s)
	}
	t.RemotePort = rp

	target := fields[1]
	idx := strings.LastIndex(target, ":")
	if idx < 0 {
		return model.Tunnel{}, fmt.Errorf("malformed RemoteForward target %q", target)
	}
	lp, err := strconv.Atoi(target[idx+1:])
	if err != nil {
		return model.Tunnel{}, fmt.Errorf("malformed RemoteForward target port in %q", target)
	}
	t.LocalHost = target[:idx]
	t.LocalPort = lp
	return t, nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
