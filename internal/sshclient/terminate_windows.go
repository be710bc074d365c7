//go:build windows

package sshclient

import "os"

// Terminate stops the child. Windows has no SIGTERM equivalent that ssh.exe
// handles reliably, so this kills outright; the supervisor's escalation path
// then finds the process already gone.
func Terminate(p *os.Process) error {
	return p.Kill()
}
