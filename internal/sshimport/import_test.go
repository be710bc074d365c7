package sshimport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
)

const sampleConfig = `
Host web
    HostName web.example.com
    User deploy
    Port 2222
    RemoteForward 8080 localhost:3000
    RemoteForward 0.0.0.0:9090 127.0.0.1:9000

Host plain
    HostName plain.example.com
    User ops

Host *
    ServerAliveInterval 30
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFromFileImportsForwardedHosts(t *testing.T) {
	res, err := FromFile(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d (%+v)", len(res.Profiles), res.Profiles)
	}

	p := res.Profiles[0]
	if p.Name != "web" || p.Host != "web.example.com" || p.User != "deploy" || p.Port != 2222 {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if len(p.Tunnels) != 2 {
		t.Fatalf("expected 2 tunnels, got %d", len(p.Tunnels))
	}
	want0 := model.Tunnel{RemotePort: 8080, LocalHost: "localhost", LocalPort: 3000}
	if p.Tunnels[0] != want0 {
		t.Fatalf("unexpected tunnel 0: %+v", p.Tunnels[0])
	}
	want1 := model.Tunnel{RemoteBind: "0.0.0.0", RemotePort: 9090, LocalHost: "127.0.0.1", LocalPort: 9000}
	if p.Tunnels[1] != want1 {
		t.Fatalf("unexpected tunnel 1: %+v", p.Tunnels[1])
	}
}

func TestFromFileSkipsHostsWithoutForwards(t *testing.T) {
	res, err := FromFile(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Skipped["plain"]; !ok {
		t.Fatalf("expected plain to be skipped: %+v", res.Skipped)
	}
	if _, ok := res.Skipped["*"]; ok {
		t.Fatal("wildcard hosts must be ignored entirely, not reported")
	}
}

func TestParseRemoteForward(t *testing.T) {
	tun, err := parseRemoteForward("8080 localhost:3000")
	if err != nil {
		t.Fatal(err)
	}
	if tun.RemotePort != 8080 || tun.LocalHost != "localhost" || tun.LocalPort != 3000 || tun.RemoteBind != "" {
		t.Fatalf("unexpected tunnel: %+v", tun)
	}

	for _, bad := range []string{"", "8080", "nope localhost:3000", "8080 localhost"} {
		if _, err := parseRemoteForward(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
