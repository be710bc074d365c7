package knownhosts

import (
	"os"
	"runtime"
	"testing"
)

func TestResolveDisabled(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path, err := Resolve(false)
	if err != nil {
		t.Fatal(err)
	}
	if path != "" {
		t.Fatalf("expected empty path when disabled, got %s", path)
	}
}

func TestResolveCreatesFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path, err := Resolve(true)
	if err != nil {
		t.Fatal(err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("known_hosts not created: %v", err)
	}
	if st.Size() != 0 {
		t.Fatalf("expected empty file, got %d bytes", st.Size())
	}
	if runtime.GOOS != "windows" && st.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %#o", st.Mode().Perm())
	}
}

func TestResolveKeepsExistingContent(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path, err := Resolve(true)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("example.com ssh-ed25519 AAAA...\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	again, err := Resolve(true)
	if err != nil {
		t.Fatal(err)
	}
	if again != path {
		t.Fatalf("path changed between resolves: %s vs %s", path, again)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) == 0 {
		t.Fatal("existing content must be preserved")
	}
}
