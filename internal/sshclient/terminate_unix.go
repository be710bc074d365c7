//go:build !windows

package sshclient

import (
	"os"
	"syscall"
)

// Terminate asks the child to exit gracefully. The supervisor escalates to
// Kill if the process has not exited within its grace window.
func Terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
