package doctor

import (
	"testing"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/appconfig"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/profile"
)

func seedProfile(t *testing.T, store *profile.Store, name, host string, remotePort int) {
	t.Helper()
	p := model.DefaultProfile()
	p.Name = name
	p.Host = host
	p.User = "u"
	p.Tunnels = []model.Tunnel{{RemotePort: remotePort, LocalPort: 3000}}
	if _, err := store.Create(p); err != nil {
		t.Fatal(err)
	}
}

func hasCheck(report Report, check string) bool {
	for _, issue := range report.Issues {
		if issue.Check == check {
			return true
		}
	}
	return false
}

func TestDuplicateRemoteBindFlagged(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	store := profile.New(t.TempDir())
	seedProfile(t, store, "a", "same-host", 8080)
	seedProfile(t, store, "b", "same-host", 8080)

	cfg := appconfig.Default()
	cfg.SSH.BinaryPath = "/bin/sh"
	report, err := Run(cfg, store)
	if err != nil {
		t.Fatal(err)
	}
	if !hasCheck(report, "duplicate-remote-bind") {
		t.Fatalf("expected duplicate-remote-bind issue: %+v", report.Issues)
	}
}

func TestDistinctHostsDoNotCollide(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	store := profile.New(t.TempDir())
	seedProfile(t, store, "a", "host-one", 8080)
	seedProfile(t, store, "b", "host-two", 8080)

	cfg := appconfig.Default()
	cfg.SSH.BinaryPath = "/bin/sh"
	report, err := Run(cfg, store)
	if err != nil {
		t.Fatal(err)
	}
	if hasCheck(report, "duplicate-remote-bind") {
		t.Fatalf("same port on different hosts is not a conflict: %+v", report.Issues)
	}
}

func TestInsecureHostKeyPolicyFlagged(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	store := profile.New(t.TempDir())

	cfg := appconfig.Default()
	cfg.SSH.BinaryPath = "/bin/sh"
	cfg.SSH.StrictHostKeyChecking = appconfig.HostKeyNo
	report, err := Run(cfg, store)
	if err != nil {
		t.Fatal(err)
	}
	if !hasCheck(report, "host-key-policy") {
		t.Fatalf("expected host-key-policy issue: %+v", report.Issues)
	}
}

func TestMissingSSHBinaryFlagged(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	store := profile.New(t.TempDir())

	cfg := appconfig.Default()
	cfg.SSH.BinaryPath = "/nonexistent/ssh"
	report, err := Run(cfg, store)
	if err != nil {
		t.Fatal(err)
	}
	if !hasCheck(report, "ssh-binary") {
		t.Fatalf("expected ssh-binary issue: %+v", report.Issues)
	}
}
