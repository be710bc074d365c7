// Package paths computes the platform-specific directories the application
// reads and writes. Layout:
//
//	<config-dir>/
//	  config.yaml          application config
//	  profiles/            one YAML file per profile
//	  known_hosts          optional, app-managed
//	<data-dir>/
//	  events.jsonl         event journal
//	  logs/                rotating log files
//
// On Linux the config dir honors XDG_CONFIG_HOME (tests rely on this to
// isolate state in a temp directory).
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appDirName = "reverse-ssh-interface"

// ConfigDir returns the application config directory.
//   - Linux:   ~/.config/reverse-ssh-interface/
//   - macOS:   ~/Library/Application Support/com.reverse-ssh.reverse-ssh-interface/
//   - Windows: %APPDATA%\reverse-ssh\reverse-ssh-interface\config\
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "com.reverse-ssh."+appDirName), nil
	case "windows":
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			return filepath.Join(appdata, "reverse-ssh", appDirName, "config"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "reverse-ssh", appDirName, "config"), nil
	default:
		return filepath.Join(home, ".config", appDirName), nil
	}
}

// DataDir returns the directory for runtime data (logs, event journal).
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		// Tests set XDG_CONFIG_HOME to isolate all state under one root.
		return filepath.Join(xdg, appDirName, "data"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "com.reverse-ssh."+appDirName), nil
	case "windows":
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			return filepath.Join(appdata, "reverse-ssh", appDirName, "data"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "reverse-ssh", appDirName, "data"), nil
	default:
		return filepath.Join(home, ".local", "share", appDirName), nil
	}
}

// LogsDir returns the directory for log files.
func LogsDir() (string, error) {
	d, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "logs"), nil
}

// ConfigFile returns the full path to config.yaml.
func ConfigFile() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.yaml"), nil
}

// ProfilesDir returns the directory holding one file per profile.
func ProfilesDir() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "profiles"), nil
}

// KnownHostsFile returns the path of the app-managed known_hosts file.
func KnownHostsFile() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "known_hosts"), nil
}

// EnsureDirectories creates every directory the application needs.
func EnsureDirectories() error {
	cfg, err := ConfigDir()
	if err != nil {
		return err
	}
	profiles, err := ProfilesDir()
	if err != nil {
		return err
	}
	logs, err := LogsDir()
	if err != nil {
		return err
	}
	for _, d := range []string{cfg, profiles, logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}
