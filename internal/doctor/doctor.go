// Package doctor runs local diagnostics: SSH binary resolution, config file
// posture, and cross-profile conflicts that would make tunnels fail at
// startup.
package doctor

import (
	"fmt"
	"os"
	"runtime"
	"sort"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/appconfig"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/paths"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/profile"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/sshbin"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Issue struct {
	Severity       Severity `json:"severity"`
	Check          string   `json:"check"`
	Target         string   `json:"target"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

// Run executes all local diagnostics.
func Run(cfg appconfig.Config, store *profile.Store) (Report, error) {
	var issues []Issue

	if _, err := sshbin.NewDetector(cfg.SSH.BinaryPath).Detect(); err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "ssh-binary",
			Target:         "PATH",
			Message:        err.Error(),
			Recommendation: "install the OpenSSH client or set ssh.binary_path in config.yaml",
		})
	}

	if cfg.SSH.StrictHostKeyChecking == appconfig.HostKeyNo {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "host-key-policy",
			Target:         "config.yaml",
			Message:        "host key checking is disabled",
			Recommendation: "set ssh.strict_host_key_checking to yes or accept_new",
		})
	}

	if dir, err := paths.ConfigDir(); err == nil {
		checkPathPerm(&issues, dir, 0o700, false)
	}
	if file, err := paths.ConfigFile(); err == nil {
		checkPathPerm(&issues, file, 0o600, true)
	}
	if kh, err := paths.KnownHostsFile(); err == nil {
		checkPathPerm(&issues, kh, 0o600, true)
	}

	if profiles, err := store.List(); err == nil {
		issues = append(issues, duplicateBindIssues(profiles)...)
		for _, p := range profiles {
			if p.Auth.Method == model.AuthKeyFile {
				if _, err := os.Stat(p.Auth.KeyPath); os.IsNotExist(err) {
					issues = append(issues, Issue{
						Severity:       SeverityLow,
						Check:          "key-file",
						Target:         p.Name,
						Message:        fmt.Sprintf("key file %s does not exist", p.Auth.KeyPath),
						Recommendation: "verify the key path or attach the removable medium before starting",
					})
				}
			}
		}
	}

	sort.Slice(issues, func(i, j int) bool {
		ri, rj := severityRank(issues[i].Severity), severityRank(issues[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if issues[i].Check != issues[j].Check {
			return issues[i].Check < issues[j].Check
		}
		return issues[i].Target < issues[j].Target
	})
	return Report{Issues: issues}, nil
}

// duplicateBindIssues flags remote binds claimed by more than one profile:
// with ExitOnForwardFailure the second session to start would die on spawn.
func duplicateBindIssues(profiles []model.Profile) []Issue {
	seen := map[string][]string{}
	for _, p := range profiles {
		for _, t := range p.Tunnels {
			bind := t.RemoteBind
			if bind == "" {
				bind = "localhost"
			}
			// Binds only collide on the same SSH server.
			key := fmt.Sprintf("%s/%s:%d", p.Host, bind, t.RemotePort)
			seen[key] = append(seen[key], p.Name)
		}
	}
	var issues []Issue
	for bind, names := range seen {
		if len(names) < 2 {
			continue
		}
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "duplicate-remote-bind",
			Target:         bind,
			Message:        fmt.Sprintf("remote bind is configured by %d profiles", len(names)),
			Recommendation: "use unique remote ports per profile to avoid startup conflicts",
		})
	}
	return issues
}

func checkPathPerm(issues *[]Issue, path string, maxMode os.FileMode, isFile bool) {
	if runtime.GOOS == "windows" {
		return
	}
	st, err := os.Stat(path)
	if err != nil {
		return
	}
	if mode := st.Mode().Perm(); mode > maxMode {
		kind := "directory"
		if isFile {
			kind = "file"
		}
		*issues = append(*issues, Issue{
			Severity:       SeverityMedium,
			Check:          "permissions",
			Target:         path,
			Message:        fmt.Sprintf("%s permissions are too broad (%#o)", kind, mode),
			Recommendation: fmt.Sprintf("restrict permissions to %#o or tighter", maxMode),
		})
	}
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}
