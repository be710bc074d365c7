package sshbin

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// writeFakeBinary creates an executable shell script standing in for ssh.
func writeFakeBinary(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "ssh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho OpenSSH_9.9 fake >&2\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDetectUsesOverride(t *testing.T) {
	path := writeFakeBinary(t, t.TempDir())
	info, err := NewDetector(path).Detect()
	if err != nil {
		t.Fatal(err)
	}
	if info.Path != path {
		t.Fatalf("expected override path, got %s", info.Path)
	}
}

func TestDetectBadOverrideFails(t *testing.T) {
	_, err := NewDetector(filepath.Join(t.TempDir(), "missing")).Detect()
	if !errors.Is(err, ErrSSHNotFound) {
		t.Fatalf("expected ErrSSHNotFound, got %v", err)
	}
}

func TestDetectRejectsNonExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("execute bit not meaningful on windows")
	}
	path := filepath.Join(t.TempDir(), "ssh")
	if err := os.WriteFile(path, []byte("not a binary"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewDetector(path).Detect(); !errors.Is(err, ErrSSHNotFound) {
		t.Fatalf("expected ErrSSHNotFound for non-executable file, got %v", err)
	}
}

func TestDetectRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewDetector(dir).Detect(); !errors.Is(err, ErrSSHNotFound) {
		t.Fatalf("expected ErrSSHNotFound for directory, got %v", err)
	}
}

func TestDetectCachesResult(t *testing.T) {
	dir := t.TempDir()
	path := writeFakeBinary(t, dir)
	d := NewDetector(path)
	first, err := d.Detect()
	if err != nil {
		t.Fatal(err)
	}
	// Remove the binary; the cached result must survive.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	again, err := d.Detect()
	if err != nil {
		t.Fatal(err)
	}
	if again != first {
		t.Fatalf("expected cached info, got %+v then %+v", first, again)
	}
}
