package profile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
)

func testProfile(name string) model.Profile {
	p := model.DefaultProfile()
	p.Name = name
	p.Host = "example.com"
	p.User = "deploy"
	p.Tunnels = []model.Tunnel{{RemotePort: 8080, LocalPort: 3000}}
	p.ExtraOptions = map[string]string{"Compression": "yes"}
	return p
}

func TestCreateGetRoundTrip(t *testing.T) {
	s := New(t.TempDir())

	want := testProfile("p1")
	if _, err := s.Create(want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get("p1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestCreateConflictAndRecreate(t *testing.T) {
	s := New(t.TempDir())

	if _, err := s.Create(testProfile("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(testProfile("x")); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := s.Delete("x"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(testProfile("x")); err != nil {
		t.Fatalf("create after delete should succeed: %v", err)
	}
}

func TestCreateRejectsInvalid(t *testing.T) {
	s := New(t.TempDir())
	p := testProfile("bad")
	p.Tunnels = nil
	if _, err := s.Create(p); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Get("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteNotFound(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Delete("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSortedAndSkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	for _, name := range []string{"zeta", "alpha", "mike"} {
		if _, err := s.Create(testProfile(name)); err != nil {
			t.Fatal(err)
		}
	}
	// A corrupt file must be skipped, not abort the listing.
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("tunnels: {not: [valid"), 0o600); err != nil {
		t.Fatal(err)
	}
	// Files without the profile extension are ignored entirely.
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("notes"), 0o600); err != nil {
		t.Fatal(err)
	}

	profiles, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(profiles))
	}
	for i, want := range []string{"alpha", "mike", "zeta"} {
		if profiles[i].Name != want {
			t.Fatalf("list not sorted: index %d is %s", i, profiles[i].Name)
		}
	}
}

func TestListEmptyDirMissing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "does-not-exist"))
	profiles, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 0 {
		t.Fatalf("expected empty list, got %d", len(profiles))
	}
}

func TestDefaultsAppliedOnLoad(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	content := []byte("name: sparse\nhost: h\nuser: u\ntunnels:\n  - remote_port: 9000\n    local_port: 3000\n")
	if err := os.WriteFile(filepath.Join(dir, "sparse.yaml"), content, 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := s.Get("sparse")
	if err != nil {
		t.Fatal(err)
	}
	if p.Port != 22 || p.KeepaliveIntervalSecs != 20 || p.KeepaliveCount != 3 || !p.AutoReconnect {
		t.Fatalf("defaults not applied: %+v", p)
	}
	if p.Auth.Method != model.AuthAgent {
		t.Fatalf("expected agent auth default, got %s", p.Auth.Method)
	}
}
