// Package appconfig manages the application-level configuration file.
package appconfig

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/paths"
)

// Host key checking policies accepted in config and translated to the ssh
// StrictHostKeyChecking option value.
const (
	HostKeyYes       = "yes"
	HostKeyAcceptNew = "accept_new"
	HostKeyNo        = "no"
)

// GeneralConfig holds behavior toggles that apply across adapters.
type GeneralConfig struct {
	AutoStartSessions bool `yaml:"auto_start_sessions"`
	StartMinimized    bool `yaml:"start_minimized"`
}

// SSHConfig holds settings for locating and invoking the SSH client.
type SSHConfig struct {
	BinaryPath               string `yaml:"binary_path"`
	DefaultKeepaliveInterval int    `yaml:"default_keepalive_interval"`
	DefaultKeepaliveCount    int    `yaml:"default_keepalive_count"`
	StrictHostKeyChecking    string `yaml:"strict_host_key_checking"`
	UseAppKnownHosts         bool   `yaml:"use_app_known_hosts"`
}

// LoggingConfig controls the slog level and optional rotating file sink.
type LoggingConfig struct {
	Level         string `yaml:"level"`
	FileLogging   bool   `yaml:"file_logging"`
	MaxFileSizeMB int    `yaml:"max_file_size_mb"`
	MaxFiles      int    `yaml:"max_files"`
}

// Config is the full application configuration.
type Config struct {
	General GeneralConfig `yaml:"general"`
	SSH     SSHConfig     `yaml:"ssh"`
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		SSH: SSHConfig{
			DefaultKeepaliveInterval: 20,
			DefaultKeepaliveCount:    3,
			StrictHostKeyChecking:    HostKeyAcceptNew,
			UseAppKnownHosts:         true,
		},
		Logging: LoggingConfig{
			Level:         "info",
			MaxFileSizeMB: 10,
			MaxFiles:      5,
		},
	}
}

// StrictHostKeyOption maps the config policy to the value passed to
// `-o StrictHostKeyChecking=`.
func (c SSHConfig) StrictHostKeyOption() string {
	if c.StrictHostKeyChecking == HostKeyAcceptNew {
		return "accept-new"
	}
	return c.StrictHostKeyChecking
}

// Load reads config.yaml from the config directory, creating it with
// defaults on first run, then applies REVSSH_* environment overrides and
// normalizes out-of-range values.
func Load() (Config, error) {
	path, err := paths.ConfigFile()
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, err
		}
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	} else if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := envconfig.Process("revssh", &cfg); err != nil {
		return Config{}, fmt.Errorf("apply environment overrides: %w", err)
	}
	normalize(&cfg)
	return cfg, nil
}

// Save writes config to config.yaml, creating the config directory if needed.
func Save(cfg Config) error {
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}
	path, err := paths.ConfigFile()
	if err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func normalize(cfg *Config) {
	if cfg.SSH.DefaultKeepaliveInterval <= 0 {
		cfg.SSH.DefaultKeepaliveInterval = 20
	}
	if cfg.SSH.DefaultKeepaliveCount <= 0 {
		cfg.SSH.DefaultKeepaliveCount = 3
	}
	switch cfg.SSH.StrictHostKeyChecking {
	case HostKeyYes, HostKeyAcceptNew, HostKeyNo:
	default:
		cfg.SSH.StrictHostKeyChecking = HostKeyAcceptNew
	}
	switch cfg.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxFileSizeMB <= 0 {
		cfg.Logging.MaxFileSizeMB = 10
	}
	if cfg.Logging.MaxFiles <= 0 {
		cfg.Logging.MaxFiles = 5
	}
}
