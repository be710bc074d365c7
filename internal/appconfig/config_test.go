package appconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SSH.DefaultKeepaliveInterval != 20 || cfg.SSH.DefaultKeepaliveCount != 3 {
		t.Fatalf("unexpected keepalive defaults: %+v", cfg.SSH)
	}
	if cfg.SSH.StrictHostKeyChecking != HostKeyAcceptNew {
		t.Fatalf("unexpected host key default: %s", cfg.SSH.StrictHostKeyChecking)
	}
	if !cfg.SSH.UseAppKnownHosts {
		t.Fatal("expected use_app_known_hosts default true")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.MaxFileSizeMB != 10 || cfg.Logging.MaxFiles != 5 {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadNormalizesBadValues(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	dir := filepath.Join(xdg, "reverse-ssh-interface")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	content := []byte("ssh:\n  strict_host_key_checking: sometimes\n  default_keepalive_interval: -4\nlogging:\n  level: shouting\n  max_file_size_mb: 0\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SSH.StrictHostKeyChecking != HostKeyAcceptNew {
		t.Fatalf("expected normalized host key policy, got %s", cfg.SSH.StrictHostKeyChecking)
	}
	if cfg.SSH.DefaultKeepaliveInterval != 20 {
		t.Fatalf("expected normalized keepalive, got %d", cfg.SSH.DefaultKeepaliveInterval)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected normalized level, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.MaxFileSizeMB != 10 {
		t.Fatalf("expected normalized max file size, got %d", cfg.Logging.MaxFileSizeMB)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("REVSSH_SSH_BINARYPATH", "/opt/custom/ssh")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SSH.BinaryPath != "/opt/custom/ssh" {
		t.Fatalf("env override not applied: %q", cfg.SSH.BinaryPath)
	}
}

func TestStrictHostKeyOption(t *testing.T) {
	c := SSHConfig{StrictHostKeyChecking: HostKeyAcceptNew}
	if got := c.StrictHostKeyOption(); got != "accept-new" {
		t.Fatalf("expected accept-new, got %s", got)
	}
	c.StrictHostKeyChecking = HostKeyYes
	if got := c.StrictHostKeyOption(); got != "yes" {
		t.Fatalf("expected yes, got %s", got)
	}
}
