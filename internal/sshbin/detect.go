// Package sshbin locates the OpenSSH client binary.
package sshbin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrSSHNotFound indicates no working SSH client binary could be located.
var ErrSSHNotFound = errors.New("ssh client binary not found")

// Info describes the resolved SSH binary.
type Info struct {
	Path    string
	Version string
}

// Detector resolves the SSH binary once and caches the result for the
// process lifetime.
type Detector struct {
	override string
	once     sync.Once
	info     Info
	err      error
}

// NewDetector creates a detector. override, when non-empty, is the explicit
// ssh.binary_path from the application config and takes precedence over the
// platform search order.
func NewDetector(override string) *Detector {
	return &Detector{override: override}
}

// Detect resolves and verifies the SSH binary. The first call does the work;
// subsequent calls return the cached result.
func (d *Detector) Detect() (Info, error) {
	d.once.Do(func() {
		path, err := resolve(d.override)
		if err != nil {
			d.err = err
			return
		}
		d.info = Info{Path: path, Version: probeVersion(path)}
	})
	return d.info, d.err
}

// resolve walks the ordered candidate list and returns the first existing
// regular file with execute permission.
func resolve(override string) (string, error) {
	if override != "" {
		if err := verify(override); err != nil {
			return "", fmt.Errorf("%w: configured binary_path %s: %v", ErrSSHNotFound, override, err)
		}
		return override, nil
	}
	for _, candidate := range platformCandidates() {
		if verify(candidate) == nil {
			return candidate, nil
		}
	}
	name := "ssh"
	if runtime.GOOS == "windows" {
		name = "ssh.exe"
	}
	if path, err := exec.LookPath(name); err == nil {
		if verify(path) == nil {
			return path, nil
		}
	}
	return "", ErrSSHNotFound
}

func platformCandidates() []string {
	if runtime.GOOS == "windows" {
		var out []string
		if windir := os.Getenv("WINDIR"); windir != "" {
			out = append(out, filepath.Join(windir, "System32", "OpenSSH", "ssh.exe"))
		}
		if pf := os.Getenv("PROGRAMFILES"); pf != "" {
			out = append(out, filepath.Join(pf, "Git", "usr", "bin", "ssh.exe"))
		}
		return out
	}
	return []string{
		"/usr/bin/ssh",
		"/usr/local/bin/ssh",
		"/opt/homebrew/bin/ssh",
	}
}

// verify checks that path is an existing regular file the current user can
// execute.
func verify(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !st.Mode().IsRegular() {
		return fmt.Errorf("not a regular file")
	}
	if runtime.GOOS != "windows" && st.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("not executable")
	}
	return nil
}

// probeVersion runs `ssh -V` and returns its banner, or "" when the probe
// fails. OpenSSH prints the version on stderr.
func probeVersion(path string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "-V").CombinedOutput()
	if err != nil && len(out) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
}
