package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestXDGOverride(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join(xdg, "reverse-ssh-interface") {
		t.Fatalf("unexpected config dir: %s", dir)
	}

	file, err := ConfigFile()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(file) != "config.yaml" || !strings.HasPrefix(file, dir) {
		t.Fatalf("unexpected config file: %s", file)
	}

	profiles, err := ProfilesDir()
	if err != nil {
		t.Fatal(err)
	}
	if profiles != filepath.Join(dir, "profiles") {
		t.Fatalf("unexpected profiles dir: %s", profiles)
	}

	kh, err := KnownHostsFile()
	if err != nil {
		t.Fatal(err)
	}
	if kh != filepath.Join(dir, "known_hosts") {
		t.Fatalf("unexpected known_hosts path: %s", kh)
	}
}

func TestEnsureDirectories(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	for _, f := range []func() (string, error){ConfigDir, ProfilesDir, LogsDir} {
		dir, err := f()
		if err != nil {
			t.Fatal(err)
		}
		st, err := os.Stat(dir)
		if err != nil || !st.IsDir() {
			t.Fatalf("directory not created: %s (%v)", dir, err)
		}
	}
}
